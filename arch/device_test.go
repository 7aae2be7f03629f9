package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/FSKernel/fsgrid"
	"github.com/notargets/FSKernel/runner"
	"github.com/notargets/FSKernel/runner/builder"
	"github.com/notargets/FSKernel/utils"
)

func newTestDevice(t *testing.T, blockSize int) (*Device, *fsgrid.Comm, func()) {
	t.Helper()
	topo := fsgrid.Topology{
		GlobalSize: [3]int{8, 4, 5},
		Periodic:   [3]bool{true, true, true},
		Spacing:    [3]float64{1, 1, 1},
		Stencil:    2,
	}
	comm, err := fsgrid.SingleRank(topo)
	require.NoError(t, err)

	device := utils.CreateTestDevice()
	kr := runner.NewRunner(device, builder.Config{
		LocalSize: topo.GlobalSize,
		Halo:      topo.Stencil,
	})
	return NewDevice(kr, blockSize), comm, func() {
		kr.Free()
		device.Free()
	}
}

func TestDevice_Creation(t *testing.T) {
	t.Run("NilRunner", func(t *testing.T) {
		assert.Panics(t, func() { NewDevice(nil, 4) })
	})

	t.Run("DefaultBlockSize", func(t *testing.T) {
		d, _, done := newTestDevice(t, 0)
		defer done()
		assert.Equal(t, DefaultBlockSize, d.BlockSize)
		assert.Contains(t, d.Name(), "device:")
	})
}

// the launch grid covers the outer extent in BlockSize blocks, the last one
// possibly short
func TestDevice_Partition(t *testing.T) {
	d, _, done := newTestDevice(t, 2)
	defer done()

	chunks := d.Partition(NewRange(8, 4, 5))
	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Index: 0, Lo: 0, Hi: 2}, chunks[0])
	assert.Equal(t, Chunk{Index: 2, Lo: 4, Hi: 5}, chunks[2])
	assert.Empty(t, d.Partition(NewRange(8, 0)))
}

func TestDevice_MirrorRoundTrip(t *testing.T) {
	d, comm, done := newTestDevice(t, 2)
	defer done()

	b, err := NewGridBuf(d, fsgrid.New[record]("roundTrip", comm))
	require.NoError(t, err)
	defer b.Free()
	require.True(t, b.OnDevice())

	ParallelFor3(d, b.Grid().LocalSize(), func(i, j, k int) {
		*b.Get(i, j, k) = record{1, float64(j), float64(k)}
	})
	require.NoError(t, b.SyncDeviceData())

	// clobber the host copy, then pull the device copy back
	for n := 0; n < b.Len(); n++ {
		*b.At(n) = record{}
	}
	require.NoError(t, b.SyncHostData())
	assert.Equal(t, record{1, 3, 4}, *b.Get(7, 3, 4))

	// host writes survive an exchange and reach the device with the halo
	*b.Get(0, 1, 1) = record{5, 5, 5}
	require.NoError(t, b.Exchange())
	assert.Equal(t, record{5, 5, 5}, *b.Get(0, 1, 1))
	assert.Equal(t, record{5, 5, 5}, *b.Get(8, 1, 1), "periodic image")
	for n := 0; n < b.Len(); n++ {
		*b.At(n) = record{}
	}
	require.NoError(t, b.SyncHostData())
	assert.Equal(t, record{5, 5, 5}, *b.Get(8, 1, 1))

	// an alias leaves the binding alone
	b.Copy().Free()
	assert.True(t, b.OnDevice())
	assert.NotNil(t, d.Runner().GetBinding("roundTrip"))
}
