// File: runner/binding.go

package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/FSKernel/runner/builder"
	"github.com/notargets/gocca"
)

// ActionFlags represents the memory operations to perform for a parameter
type ActionFlags int

const (
	// No action
	NoAction ActionFlags = 0
	// Copy from host to device before kernel execution
	CopyTo ActionFlags = 1 << (iota - 1)
	// Copy from device to host after kernel execution
	CopyBack
	// Bidirectional copy (CopyTo | CopyBack)
	Copy = CopyTo | CopyBack
)

// DeviceBinding ties a host array to its device allocation
type DeviceBinding struct {
	Name     string
	Host     unsafe.Pointer
	Bytes    int64
	Stride   int
	DataType builder.DataType
	Memory   *gocca.OCCAMemory
}

// BindArray allocates device memory for a host array and uploads its current
// contents. Rebinding an existing name with the same size only swaps the host
// pointer.
func (kr *Runner) BindArray(name string, host unsafe.Pointer, bytes int64,
	stride int, dt builder.DataType) (*DeviceBinding, error) {
	if host == nil {
		return nil, fmt.Errorf("host data for %s is nil", name)
	}
	if bytes <= 0 {
		return nil, fmt.Errorf("array %s has non-positive size %d", name, bytes)
	}
	// strided arrays hold whole records of dt; a zero stride marks a struct
	// record such as technical_t
	if stride < 0 {
		return nil, fmt.Errorf("array %s has negative stride %d", name, stride)
	}
	if rec := int64(stride) * SizeOfType(dt); rec > 0 && bytes%rec != 0 {
		return nil, fmt.Errorf("array %s: %d bytes is not a whole number of %d byte records", name, bytes, rec)
	}
	if b, exists := kr.bindings[name]; exists {
		if b.Bytes != bytes {
			return nil, fmt.Errorf("array %s already bound with %d bytes, got %d", name, b.Bytes, bytes)
		}
		b.Host = host
		return b, nil
	}

	mem := kr.Device.Malloc(bytes, host, nil)
	if mem == nil {
		return nil, fmt.Errorf("device allocation of %d bytes for %s failed", bytes, name)
	}
	b := &DeviceBinding{
		Name:     name,
		Host:     host,
		Bytes:    bytes,
		Stride:   stride,
		DataType: dt,
		Memory:   mem,
	}
	kr.bindings[name] = b
	kr.PooledMemory[name] = mem
	kr.AddArray(builder.ArraySpec{Name: name, Stride: stride, DataType: dt})
	return b, nil
}

// GetBinding returns the binding for a name, or nil
func (kr *Runner) GetBinding(name string) *DeviceBinding {
	return kr.bindings[name]
}

// CopyToDevice uploads the host contents of a bound array
func (kr *Runner) CopyToDevice(name string) error {
	b := kr.bindings[name]
	if b == nil {
		return fmt.Errorf("array %s is not bound", name)
	}
	b.Memory.CopyFrom(b.Host, b.Bytes)
	return nil
}

// CopyFromDevice downloads the device contents of a bound array
func (kr *Runner) CopyFromDevice(name string) error {
	b := kr.bindings[name]
	if b == nil {
		return fmt.Errorf("array %s is not bound", name)
	}
	b.Memory.CopyTo(b.Host, b.Bytes)
	return nil
}

// Unbind releases the device memory of an array
func (kr *Runner) Unbind(name string) {
	b := kr.bindings[name]
	if b == nil {
		return
	}
	b.Memory.Free()
	delete(kr.bindings, name)
	delete(kr.PooledMemory, name)
	delete(kr.Arrays, name)
}

// executeCopyActions is the copy engine shared by kernel runs and ExecuteCopy
func (kr *Runner) executeCopyActions(params []ParameterUsage, which ActionFlags) error {
	for _, param := range params {
		if !param.HasAction(which) {
			continue
		}
		var err error
		switch which {
		case CopyTo:
			err = kr.CopyToDevice(param.Binding.Name)
		case CopyBack:
			err = kr.CopyFromDevice(param.Binding.Name)
		}
		if err != nil {
			return fmt.Errorf("copy of %s failed: %w", param.Binding.Name, err)
		}
	}
	return nil
}
