package fieldsolver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
	"github.com/notargets/FSKernel/fsgrid"
	"github.com/notargets/FSKernel/sysboundary"
)

const (
	testDensity = 1e6
	testB0      = 1e-9
	testDx      = 1e5
)

// periodicTopo is a box periodic along every axis
func periodicTopo(nx, ny, nz int) fsgrid.Topology {
	return fsgrid.Topology{
		GlobalSize: [3]int{nx, ny, nz},
		Tasks:      [3]int{1, 1, 1},
		Periodic:   [3]bool{true, true, true},
		Spacing:    [3]float64{testDx, testDx, testDx},
		Stencil:    fsgrid.DefaultStencil,
	}
}

// openXTopo is periodic in y and z only. Without boundary faces the x halo
// is never overwritten, so tests can prescribe it.
func openXTopo(nx, ny, nz int) fsgrid.Topology {
	topo := periodicTopo(nx, ny, nz)
	topo.Periodic[0] = false
	return topo
}

// testLogger panics instead of exiting on Fatal and records Info and above
func testLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic)), logs
}

type fixture struct {
	g *Grids
	s *Solver
}

// newFixture builds grids and a solver on comm. init fills the host state
// before the solver is created.
func newFixture(t *testing.T, comm *fsgrid.Comm, ex arch.Executor, p Parameters,
	faces sysboundary.Faces, sb *sysboundary.SysBoundary, log *zap.Logger, init func(g *Grids)) *fixture {
	t.Helper()
	g, err := NewGrids(ex, comm)
	require.NoError(t, err)
	t.Cleanup(g.Free)

	if faces.Thickness == 0 {
		faces.Thickness = 1
	}
	require.NoError(t, sysboundary.Classify(g.Technical.Grid(), faces))
	if init != nil {
		init(g)
	}
	require.NoError(t, g.SyncDevice())
	if sb == nil {
		sb = sysboundary.New(sysboundary.NewOutflow(fsgrid.DefaultStencil))
	}
	s, err := NewSolver(p, ex, g, sb, log)
	require.NoError(t, err)
	t.Cleanup(s.Free)
	return &fixture{g: g, s: s}
}

func singleRank(t *testing.T, topo fsgrid.Topology) *fsgrid.Comm {
	t.Helper()
	comm, err := fsgrid.SingleRank(topo)
	require.NoError(t, err)
	return comm
}

// fillAll writes one record into every cell of a grid, halo included
func fillAll[T any](b *arch.Buf[T], v T) {
	data := b.Grid().Data()
	for n := range data {
		data[n] = v
	}
}

// forStorage visits every cell of a grid, halo included
func forStorage[T any](b *arch.Buf[T], fn func(i, j, k int, rec *T)) {
	g := b.Grid()
	ls, s := g.LocalSize(), g.Stencil()
	for k := -s; k < ls[2]+s; k++ {
		for j := -s; j < ls[1]+s; j++ {
			for i := -s; i < ls[0]+s; i++ {
				fn(i, j, k, g.Get(i, j, k))
			}
		}
	}
}

func plasma(n float64, v [3]float64, pressure float64) fields.Moments {
	var m fields.Moments
	m[fields.RhoM] = n * MassProton
	m[fields.RhoQ] = n * ChargeElem
	m[fields.VX], m[fields.VY], m[fields.VZ] = v[0], v[1], v[2]
	m[fields.P11], m[fields.P22], m[fields.P33] = pressure, pressure, pressure
	return m
}

func background(b [3]float64) fields.BgBField {
	var bg fields.BgBField
	bg[fields.BgBX], bg[fields.BgBY], bg[fields.BgBZ] = b[0], b[1], b[2]
	return bg
}

// uniformState sets perB, the background and both moment levels everywhere
func uniformState(perB fields.BField, bg [3]float64, m fields.Moments) func(g *Grids) {
	return func(g *Grids) {
		fillAll(g.PerB, perB)
		fillAll(g.PerBDt2, perB)
		fillAll(g.BgB, background(bg))
		fillAll(g.Moments, m)
		fillAll(g.MomentsDt2, m)
	}
}

// ownedCells lists the owned cells of a grid in storage order
func ownedCells(g *Grids) [][3]int {
	ls := g.LocalSize()
	var out [][3]int
	for k := 0; k < ls[2]; k++ {
		for j := 0; j < ls[1]; j++ {
			for i := 0; i < ls[0]; i++ {
				out = append(out, [3]int{i, j, k})
			}
		}
	}
	return out
}
