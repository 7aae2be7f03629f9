package runner

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/FSKernel/runner/builder"
	"github.com/notargets/FSKernel/utils"
)

const scaleKernel = `
@kernel void scale(real_t *values, const real_t alpha) {
  for (int k = 0; k < LNZ; ++k; @outer) {
    for (int i = 0; i < LNX; ++i; @inner) {
      for (int j = 0; j < LNY; ++j) {
        values_AT(CELL(i, j, k), 1) *= alpha;
      }
    }
  }
}
`

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	device := utils.CreateTestDevice()
	kr := NewRunner(device, builder.Config{LocalSize: [3]int{4, 3, 2}, Halo: 1})
	t.Cleanup(func() {
		kr.Free()
		device.Free()
	})
	return kr
}

func TestNewRunner_Validation(t *testing.T) {
	assert.Panics(t, func() { NewRunner(nil, builder.Config{LocalSize: [3]int{1, 1, 1}}) })

	device := utils.CreateTestDevice()
	defer device.Free()
	assert.Panics(t, func() {
		NewRunner(device, builder.Config{LocalSize: [3]int{builder.MaxInnerSize + 1, 1, 1}})
	})
}

func TestBindArray(t *testing.T) {
	kr := newTestRunner(t)
	host := make([]float64, 6)
	bytes := int64(len(host) * 8)

	_, err := kr.BindArray("nilHost", nil, 8, 1, builder.Float64)
	assert.Error(t, err)
	_, err = kr.BindArray("empty", unsafe.Pointer(&host[0]), 0, 1, builder.Float64)
	assert.Error(t, err)
	_, err = kr.BindArray("partial", unsafe.Pointer(&host[0]), bytes, 4, builder.Float64)
	assert.ErrorContains(t, err, "whole number")
	_, err = kr.BindArray("negative", unsafe.Pointer(&host[0]), bytes, -1, builder.Float64)
	assert.Error(t, err)
	assert.Nil(t, kr.GetBinding("partial"))

	b, err := kr.BindArray("values", unsafe.Pointer(&host[0]), bytes, 2, builder.Float64)
	require.NoError(t, err)
	assert.Same(t, b, kr.GetBinding("values"))
	assert.Contains(t, kr.Arrays, "values")

	// rebinding swaps the host pointer but keeps the allocation
	other := make([]float64, 6)
	again, err := kr.BindArray("values", unsafe.Pointer(&other[0]), bytes, 2, builder.Float64)
	require.NoError(t, err)
	assert.Same(t, b, again)
	assert.Equal(t, unsafe.Pointer(&other[0]), again.Host)
	_, err = kr.BindArray("values", unsafe.Pointer(&other[0]), bytes/2, 2, builder.Float64)
	assert.Error(t, err)

	kr.Unbind("values")
	assert.Nil(t, kr.GetBinding("values"))
	assert.NotContains(t, kr.Arrays, "values")
	assert.Error(t, kr.CopyToDevice("values"))
	kr.Unbind("values")
}

func TestCopyRoundTrip(t *testing.T) {
	kr := newTestRunner(t)
	host := []float64{1, 2, 3, 4}
	_, err := kr.BindArray("data", unsafe.Pointer(&host[0]), 32, 1, builder.Float64)
	require.NoError(t, err)

	require.NoError(t, kr.CopyToDevice("data"))
	for n := range host {
		host[n] = 0
	}
	cfg, err := kr.ConfigureCopy(kr.Param("data").CopyBack())
	require.NoError(t, err)
	require.NoError(t, kr.ExecuteCopy(cfg))
	assert.Equal(t, []float64{1, 2, 3, 4}, host)

	_, err = kr.ConfigureCopy(kr.Param("missing"))
	assert.Error(t, err)
	assert.Error(t, kr.ExecuteCopy(nil))
}

// Test 1.1: a kernel scales one component of every owned cell and leaves the
// halo and the other component alone
func TestRunKernel_GridLayout(t *testing.T) {
	kr := newTestRunner(t)
	ss := kr.StorageSize()
	cells := ss[0] * ss[1] * ss[2]
	host := make([]float64, 2*cells)
	for n := range host {
		host[n] = 1
	}
	_, err := kr.BindArray("values", unsafe.Pointer(&host[0]), int64(len(host)*8), 2, builder.Float64)
	require.NoError(t, err)

	require.NoError(t, kr.DefineKernel("scale", scaleKernel, kr.Param("values").Copy()))
	require.Len(t, kr.KernelConfigs["scale"].Parameters, 1)
	assert.True(t, kr.KernelConfigs["scale"].Parameters[0].HasAction(CopyBack))
	require.NoError(t, kr.RunKernel("scale", kr.RealArg(3)))

	cell := func(i, j, k int) int {
		return ((k+kr.Halo)*ss[1]+(j+kr.Halo))*ss[0] + (i + kr.Halo)
	}
	assert.Equal(t, 3.0, host[2*cell(0, 0, 0)+1])
	assert.Equal(t, 3.0, host[2*cell(3, 2, 1)+1])
	assert.Equal(t, 1.0, host[2*cell(3, 2, 1)])
	assert.Equal(t, 1.0, host[2*cell(-1, 0, 0)+1], "halo untouched")
	assert.Equal(t, 1.0, host[2*cell(4, 2, 1)+1], "halo untouched")

	assert.Error(t, kr.RunKernel("undefined"))
	assert.Error(t, kr.DefineKernel("bad", scaleKernel, kr.Param("unbound")))
}

func TestScalarArgs(t *testing.T) {
	kr := newTestRunner(t)
	assert.Equal(t, int64(3), kr.IntArg(3))
	assert.Equal(t, 2.5, kr.RealArg(2.5))
	assert.EqualValues(t, 8, SizeOfType(builder.INT64))
	assert.EqualValues(t, 4, SizeOfType(builder.Float32))

	device := utils.CreateTestDevice()
	defer device.Free()
	narrow := NewRunner(device, builder.Config{LocalSize: [3]int{1, 1, 1}, FloatType: builder.Float32, IntType: builder.INT32})
	defer narrow.Free()
	assert.Equal(t, int32(3), narrow.IntArg(3))
	assert.Equal(t, float32(2.5), narrow.RealArg(2.5))
}
