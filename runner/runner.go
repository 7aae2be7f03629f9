package runner

import (
	"fmt"

	"github.com/notargets/FSKernel/runner/builder"
	"github.com/notargets/gocca"
)

// Runner compiles OKL kernels against the local grid layout and moves grid
// data between host and device
type Runner struct {
	*builder.Builder
	Device        *gocca.OCCADevice
	Kernels       map[string]*gocca.OCCAKernel
	PooledMemory  map[string]*gocca.OCCAMemory
	KernelConfigs map[string]*KernelConfig
	bindings      map[string]*DeviceBinding
}

// NewRunner creates a new Runner instance
func NewRunner(device *gocca.OCCADevice, Config builder.Config) (kr *Runner) {
	if device == nil {
		panic("device cannot be nil")
	}
	bld := builder.NewBuilder(Config)

	if bld.LocalSize[0] > builder.MaxInnerSize {
		panic(fmt.Sprintf("local x extent exceeds the @inner limit (%d).\n"+
			"Found LNX=%d. Decompose the mesh over more ranks along x.",
			builder.MaxInnerSize, bld.LocalSize[0]))
	}

	kr = &Runner{
		Builder:       bld,
		Device:        device,
		Kernels:       make(map[string]*gocca.OCCAKernel),
		PooledMemory:  make(map[string]*gocca.OCCAMemory),
		KernelConfigs: make(map[string]*KernelConfig),
		bindings:      make(map[string]*DeviceBinding),
	}
	return
}

// BuildKernel compiles and registers a kernel
func (kr *Runner) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	kr.GeneratePreamble()

	// Combine preamble with kernel source
	fullSource := kr.KernelPreamble + "\n" + kernelSource

	var kernel *gocca.OCCAKernel
	var err error

	if kr.Device.Mode() == "OpenMP" {
		// Workaround for OCCA bug: OpenMP doesn't get default -O3 flag
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}

	if old, exists := kr.Kernels[kernelName]; exists {
		old.Free()
	}
	kr.Kernels[kernelName] = kernel
	return kernel, nil
}

// DefineKernel builds a kernel and records which bound arrays it takes, in
// argument order, and the copies to perform around each launch. Array
// arguments precede the scalars passed to RunKernel.
func (kr *Runner) DefineKernel(kernelName, kernelSource string, params ...*ParamConfig) error {
	usages, err := kr.usages(params)
	if err != nil {
		return fmt.Errorf("kernel %s: %w", kernelName, err)
	}
	if _, err = kr.BuildKernel(kernelSource, kernelName); err != nil {
		return err
	}
	kr.KernelConfigs[kernelName] = &KernelConfig{
		Name:       kernelName,
		Source:     kernelSource,
		Parameters: usages,
	}
	return nil
}

// RunKernel launches a defined kernel
func (kr *Runner) RunKernel(kernelName string, scalarValues ...interface{}) error {
	config, exists := kr.KernelConfigs[kernelName]
	if !exists {
		return fmt.Errorf("kernel %s not defined - use DefineKernel first", kernelName)
	}
	kernel, exists := kr.Kernels[kernelName]
	if !exists {
		return fmt.Errorf("kernel %s not compiled", kernelName)
	}

	// Perform pre-kernel data copies (host→device)
	if err := kr.executeCopyActions(config.Parameters, CopyTo); err != nil {
		return fmt.Errorf("pre-kernel copy failed: %w", err)
	}

	args := make([]interface{}, 0, len(config.Parameters)+len(scalarValues))
	for _, p := range config.Parameters {
		args = append(args, p.Binding.Memory)
	}
	args = append(args, scalarValues...)

	if err := kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}
	kr.Device.Finish()

	// Perform post-kernel data copies (device→host)
	if err := kr.executeCopyActions(config.Parameters, CopyBack); err != nil {
		return fmt.Errorf("post-kernel copy failed: %w", err)
	}
	return nil
}

// Free releases all resources
func (kr *Runner) Free() {
	for _, kernel := range kr.Kernels {
		kernel.Free()
	}
	for _, mem := range kr.PooledMemory {
		mem.Free()
	}
	kr.Kernels = make(map[string]*gocca.OCCAKernel)
	kr.PooledMemory = make(map[string]*gocca.OCCAMemory)
	kr.KernelConfigs = make(map[string]*KernelConfig)
	kr.bindings = make(map[string]*DeviceBinding)
}
