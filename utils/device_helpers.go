package utils

import (
	"fmt"
	"strings"

	"github.com/notargets/gocca"
)

var backendProps = map[string]string{
	"serial": `{"mode": "Serial"}`,
	"openmp": `{"mode": "OpenMP"}`,
	"cuda":   `{"mode": "CUDA", "device_id": 0}`,
}

// OpenDevice opens the OCCA backend named by mode (Serial, OpenMP or CUDA)
func OpenDevice(mode string) (*gocca.OCCADevice, error) {
	props, ok := backendProps[strings.ToLower(mode)]
	if !ok {
		return nil, fmt.Errorf("unknown device mode %q", mode)
	}
	device, err := gocca.NewDevice(props)
	if err != nil {
		return nil, fmt.Errorf("opening %s device: %w", mode, err)
	}
	return device, nil
}

// CreateTestDevice creates a Device for testing, preferring parallel backends
func CreateTestDevice() *gocca.OCCADevice {
	// OpenMP first, then CUDA, then Serial
	for _, mode := range []string{"OpenMP", "CUDA", "Serial"} {
		device, err := OpenDevice(mode)
		if err == nil {
			return device
		}
	}

	// Should not reach here
	panic("Failed to create any Device")
}
