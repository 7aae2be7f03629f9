package arch

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/notargets/FSKernel/runner"
	"github.com/notargets/FSKernel/runner/builder"
)

// DefaultBlockSize is the number of outer indices per launch block
const DefaultBlockSize = 4

// Device is the accelerator executor. Host loop bodies are mapped onto a
// launch grid of fixed-size blocks, and buffers constructed against it are
// mirrored into OCCA device memory so that OKL kernels compiled by the
// runner operate on the same cells.
type Device struct {
	kr        *runner.Runner
	BlockSize int
	workers   int
}

// NewDevice wraps a runner. The runner stays owned by the caller.
func NewDevice(kr *runner.Runner, blockSize int) *Device {
	if kr == nil {
		panic("runner cannot be nil")
	}
	if blockSize < 1 {
		blockSize = DefaultBlockSize
	}
	return &Device{kr: kr, BlockSize: blockSize, workers: runtime.GOMAXPROCS(0)}
}

func (d *Device) Name() string { return "device:" + d.kr.Device.Mode() }
func (d *Device) Workers() int { return d.workers }

// Runner exposes the kernel runner for device-native kernels
func (d *Device) Runner() *runner.Runner { return d.kr }

// Partition builds the launch grid: ceil(outer/BlockSize) blocks
func (d *Device) Partition(r Range) []Chunk {
	if r.Len() == 0 {
		return nil
	}
	nb := (r.Outer() + d.BlockSize - 1) / d.BlockSize
	chunks := make([]Chunk, nb)
	for b := range chunks {
		chunks[b] = Chunk{Index: b, Lo: b * d.BlockSize, Hi: min((b+1)*d.BlockSize, r.Outer())}
	}
	return chunks
}

func (d *Device) Run(chunks []Chunk, fn func(c Chunk)) {
	launch(chunks, d.workers, fn)
}

func (d *Device) Mirror(name string, host unsafe.Pointer, bytes int64, stride int) (Mirror, error) {
	if _, err := d.kr.BindArray(name, host, bytes, stride, builder.Float64); err != nil {
		return nil, fmt.Errorf("mirror %s: %w", name, err)
	}
	return &deviceArray{kr: d.kr, name: name}, nil
}

type deviceArray struct {
	kr   *runner.Runner
	name string
}

func (da *deviceArray) Upload() error { return da.kr.CopyToDevice(da.name) }
func (da *deviceArray) Download() error { return da.kr.CopyFromDevice(da.name) }
func (da *deviceArray) Free() { da.kr.Unbind(da.name) }
