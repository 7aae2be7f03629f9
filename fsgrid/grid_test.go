package fsgrid

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type coords [3]float64

func encode(g [3]int) coords { return coords{float64(g[0]), float64(g[1]), float64(g[2])} }

// ============================================================================
// Section 1: Topology
// ============================================================================

func TestTopology_Validate(t *testing.T) {
	good := Topology{
		GlobalSize: [3]int{10, 6, 4},
		Tasks:      [3]int{2, 1, 1},
		Spacing:    [3]float64{1, 1, 1},
		Stencil:    2,
	}
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		mutate func(*Topology)
	}{
		{"zero size", func(tp *Topology) { tp.GlobalSize[1] = 0 }},
		{"zero tasks", func(tp *Topology) { tp.Tasks[2] = 0 }},
		{"negative spacing", func(tp *Topology) { tp.Spacing[0] = -1 }},
		{"zero stencil", func(tp *Topology) { tp.Stencil = 0 }},
		{"blocks thinner than stencil", func(tp *Topology) { tp.Tasks[0] = 6 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := good
			tt.mutate(&tp)
			assert.Error(t, tp.Validate())
		})
	}
}

// remainder cells go to the low ranks, and Owner inverts the decomposition
func TestTopology_Decomposition(t *testing.T) {
	tp := Topology{
		GlobalSize: [3]int{10, 7, 3},
		Tasks:      [3]int{3, 2, 1},
		Periodic:   [3]bool{true, false, false},
		Spacing:    [3]float64{1, 1, 1},
		Stencil:    2,
	}
	assert.Equal(t, 6, tp.NumRanks())
	assert.Equal(t, [3]int{4, 4, 3}, tp.LocalSize(0))
	assert.Equal(t, [3]int{3, 3, 3}, tp.LocalSize(5))
	assert.Equal(t, [3]int{7, 4, 0}, tp.LocalStart(5))

	for r := 0; r < tp.NumRanks(); r++ {
		assert.Equal(t, r, tp.RankOf(tp.RankCoords(r)))
		ls, st := tp.LocalSize(r), tp.LocalStart(r)
		for d := 0; d < 3; d++ {
			for x := 0; x < ls[d]; x++ {
				g := st
				g[d] += x
				owner, local, ok := tp.Owner(g)
				require.True(t, ok)
				assert.Equal(t, r, owner)
				assert.Equal(t, x, local[d])
			}
		}
	}

	w, ok := tp.Wrap([3]int{-1, 0, 0})
	assert.True(t, ok)
	assert.Equal(t, [3]int{9, 0, 0}, w)
	_, ok = tp.Wrap([3]int{0, 7, 0})
	assert.False(t, ok, "y is not periodic")
}

// ============================================================================
// Section 2: Halo exchange
// ============================================================================

func fillOwned(g *Grid[coords]) {
	ls := g.LocalSize()
	for z := 0; z < ls[2]; z++ {
		for y := 0; y < ls[1]; y++ {
			for x := 0; x < ls[0]; x++ {
				*g.Get(x, y, z) = encode(g.GlobalCoords(x, y, z))
			}
		}
	}
}

func TestGrid_Accessors(t *testing.T) {
	comm, err := SingleRank(Topology{
		GlobalSize: [3]int{5, 4, 3},
		Spacing:    [3]float64{2, 3, 4},
	})
	require.NoError(t, err)
	g := New[coords]("acc", comm)

	assert.Equal(t, DefaultStencil, g.Stencil())
	assert.Equal(t, [3]int{9, 8, 7}, g.StorageSize())
	assert.Equal(t, 9*8*7, len(g.Data()))
	assert.Equal(t, int64(9*8*7*24), g.Bytes())
	assert.Equal(t, 3.0, g.DY())
	assert.NotNil(t, g.Get(-2, -2, -2))
	assert.NotNil(t, g.Get(6, 5, 4))
	assert.Nil(t, g.Get(-3, 0, 0))
	assert.Nil(t, g.Get(0, 6, 0))
	assert.Panics(t, func() { New[coords]("nil", nil) })
}

// Test 2.1: every halo cell of every rank holds its owner's value; cells
// beyond a non-periodic face keep their sentinel
func TestGrid_UpdateGhostCells_MultiRank(t *testing.T) {
	topo := Topology{
		GlobalSize: [3]int{9, 6, 4},
		Tasks:      [3]int{3, 2, 1},
		Periodic:   [3]bool{true, true, false},
		Spacing:    [3]float64{1, 1, 1},
		Stencil:    2,
	}
	w, err := NewWorld(topo)
	require.NoError(t, err)
	sentinel := coords{-1, -1, -1}

	err = w.Run(func(c *Comm) error {
		g := New[coords]("halo", c)
		for n := range g.Data() {
			g.Data()[n] = sentinel
		}
		fillOwned(g)
		g.UpdateGhostCells()

		ls, s := g.LocalSize(), g.Stencil()
		for z := -s; z < ls[2]+s; z++ {
			for y := -s; y < ls[1]+s; y++ {
				for x := -s; x < ls[0]+s; x++ {
					gc := g.GlobalCoords(x, y, z)
					want := sentinel
					if wc, ok := topo.Wrap(gc); ok {
						want = encode(wc)
					}
					if got := *g.Get(x, y, z); got != want {
						t.Errorf("rank %d cell (%d,%d,%d): got %v, want %v", c.Rank(), x, y, z, got, want)
						return nil
					}
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestComm_AllreduceMin(t *testing.T) {
	w, err := NewWorld(Topology{
		GlobalSize: [3]int{8, 8, 8},
		Tasks:      [3]int{2, 2, 1},
		Spacing:    [3]float64{1, 1, 1},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	results := map[int][]float64{}
	err = w.Run(func(c *Comm) error {
		// reuse the slots several times in a row
		var got []float64
		for round := 0; round < 3; round++ {
			got = append(got, c.AllreduceMin(float64(10*round+c.Rank())))
		}
		got = append(got, c.AllreduceMin(math.Inf(1)))
		mu.Lock()
		results[c.Rank()] = got
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	for r, got := range results {
		assert.Equal(t, []float64{0, 10, 20, math.Inf(1)}, got, "rank %d", r)
	}
}

// a failing rank must not leave its peers blocked in a barrier
func TestWorld_RunBreaksBarrierOnError(t *testing.T) {
	w, err := NewWorld(Topology{
		GlobalSize: [3]int{8, 8, 8},
		Tasks:      [3]int{2, 1, 1},
		Spacing:    [3]float64{1, 1, 1},
	})
	require.NoError(t, err)
	err = w.Run(func(c *Comm) error {
		if c.Rank() == 1 {
			return assert.AnError
		}
		c.Barrier()
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
}
