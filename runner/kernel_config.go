// File: runner/kernel_config.go

package runner

import (
	"fmt"
)

// ParameterUsage pairs a binding with the copies performed around a kernel
type ParameterUsage struct {
	Binding *DeviceBinding
	Actions ActionFlags
}

// HasAction reports whether the usage includes action
func (pu ParameterUsage) HasAction(action ActionFlags) bool {
	return pu.Actions&action != 0
}

// KernelConfig represents the configuration for a specific kernel execution
// It references bindings and specifies which memory operations to perform
type KernelConfig struct {
	Name       string
	Source     string
	Parameters []ParameterUsage
}

// CopyConfig represents a standalone memory copy operation configuration
type CopyConfig struct {
	Parameters []ParameterUsage
}

func (kr *Runner) usages(params []*ParamConfig) ([]ParameterUsage, error) {
	out := make([]ParameterUsage, 0, len(params))
	for _, param := range params {
		if param == nil {
			continue
		}
		if param.binding == nil {
			return nil, fmt.Errorf("parameter %s has no binding", param.name)
		}
		out = append(out, ParameterUsage{Binding: param.binding, Actions: param.actions})
	}
	return out, nil
}

// ConfigureCopy creates a configuration for standalone memory operations
func (kr *Runner) ConfigureCopy(params ...*ParamConfig) (*CopyConfig, error) {
	usages, err := kr.usages(params)
	if err != nil {
		return nil, err
	}
	return &CopyConfig{Parameters: usages}, nil
}

// ExecuteCopy executes a copy configuration, uploads first
func (kr *Runner) ExecuteCopy(config *CopyConfig) error {
	if config == nil {
		return fmt.Errorf("copy configuration is nil")
	}
	if err := kr.executeCopyActions(config.Parameters, CopyTo); err != nil {
		return err
	}
	return kr.executeCopyActions(config.Parameters, CopyBack)
}

// Param creates a parameter configuration for a named binding
func (kr *Runner) Param(name string) *ParamConfig {
	// a missing binding surfaces as an error when the config is used
	return &ParamConfig{
		name:    name,
		binding: kr.GetBinding(name),
		actions: NoAction,
	}
}

// ParamConfig is a lightweight builder for configuring parameter actions
type ParamConfig struct {
	name    string
	binding *DeviceBinding
	actions ActionFlags
}

// CopyTo sets the parameter to copy from host to device
func (pc *ParamConfig) CopyTo() *ParamConfig {
	pc.actions |= CopyTo
	return pc
}

// CopyBack sets the parameter to copy from device to host
func (pc *ParamConfig) CopyBack() *ParamConfig {
	pc.actions |= CopyBack
	return pc
}

// Copy sets the parameter for bidirectional copy
func (pc *ParamConfig) Copy() *ParamConfig {
	pc.actions |= Copy
	return pc
}
