// Package fsgrid provides the distributed structured grid consumed by the
// field solver: a block of locally owned cells surrounded by a halo of
// Stencil cells, refreshed from neighbouring ranks on request.
package fsgrid

import (
	"fmt"
	"unsafe"
)

// Grid stores one record of type T per cell, halo included.
type Grid[T any] struct {
	name    string
	comm    *Comm
	topo    Topology
	local   [3]int
	start   [3]int
	storage [3]int
	s       int
	data    []T
}

// New allocates the rank-local part of the named grid and registers it
// with the world so that peers can read its owned cells.
func New[T any](name string, comm *Comm) *Grid[T] {
	if comm == nil {
		panic("fsgrid: nil communicator")
	}
	topo := comm.Topology()
	g := &Grid[T]{
		name:  name,
		comm:  comm,
		topo:  topo,
		local: topo.LocalSize(comm.Rank()),
		start: topo.LocalStart(comm.Rank()),
		s:     topo.Stencil,
	}
	for d := 0; d < 3; d++ {
		if g.local[d] < 1 {
			panic(fmt.Sprintf("fsgrid: grid %s has empty local extent along axis %d", name, d))
		}
		g.storage[d] = g.local[d] + 2*g.s
	}
	g.data = make([]T, g.storage[0]*g.storage[1]*g.storage[2])
	comm.world.register(name, comm.Rank(), g)
	return g
}

func (g *Grid[T]) Name() string { return g.name }
func (g *Grid[T]) LocalSize() [3]int { return g.local }
func (g *Grid[T]) LocalStart() [3]int { return g.start }
func (g *Grid[T]) StorageSize() [3]int { return g.storage }
func (g *Grid[T]) Stencil() int { return g.s }
func (g *Grid[T]) GlobalSize() [3]int { return g.topo.GlobalSize }
func (g *Grid[T]) Topology() Topology { return g.topo }
func (g *Grid[T]) Rank() int { return g.comm.Rank() }
func (g *Grid[T]) Comm() *Comm { return g.comm }
func (g *Grid[T]) DX() float64 { return g.topo.Spacing[0] }
func (g *Grid[T]) DY() float64 { return g.topo.Spacing[1] }
func (g *Grid[T]) DZ() float64 { return g.topo.Spacing[2] }
func (g *Grid[T]) Spacing() [3]float64 { return g.topo.Spacing }
func (g *Grid[T]) IsPeriodic(d int) bool { return g.topo.Periodic[d] }

// Data exposes the backing store, halo included, in storage order.
func (g *Grid[T]) Data() []T { return g.data }

// Bytes is the size of the backing store.
func (g *Grid[T]) Bytes() int64 {
	var zero T
	return int64(len(g.data)) * int64(unsafe.Sizeof(zero))
}

// Index maps local coordinates, which may reach into the halo, to a position
// in Data.
func (g *Grid[T]) Index(x, y, z int) int {
	return ((z+g.s)*g.storage[1]+(y+g.s))*g.storage[0] + (x + g.s)
}

// Contains reports whether local coordinates lie inside the allocated halo.
func (g *Grid[T]) Contains(x, y, z int) bool {
	s := g.s
	return x >= -s && x < g.local[0]+s &&
		y >= -s && y < g.local[1]+s &&
		z >= -s && z < g.local[2]+s
}

// Get returns the record at local coordinates, or nil beyond the halo.
func (g *Grid[T]) Get(x, y, z int) *T {
	if !g.Contains(x, y, z) {
		return nil
	}
	return &g.data[g.Index(x, y, z)]
}

// GlobalCoords converts local coordinates to unwrapped global coordinates.
func (g *Grid[T]) GlobalCoords(x, y, z int) [3]int {
	return [3]int{g.start[0] + x, g.start[1] + y, g.start[2] + z}
}

// AllreduceMin reduces v over every rank sharing this grid.
func (g *Grid[T]) AllreduceMin(v float64) float64 { return g.comm.AllreduceMin(v) }

func (g *Grid[T]) isOwned(x, y, z int) bool {
	return x >= 0 && x < g.local[0] && y >= 0 && y < g.local[1] && z >= 0 && z < g.local[2]
}

// UpdateGhostCells refreshes every halo cell from the rank that owns it.
// Halo cells beyond a non-periodic domain face are left untouched. The call
// is collective: every rank must call it for the same grid.
func (g *Grid[T]) UpdateGhostCells() {
	g.comm.Barrier()
	s := g.s
	for z := -s; z < g.local[2]+s; z++ {
		for y := -s; y < g.local[1]+s; y++ {
			for x := -s; x < g.local[0]+s; x++ {
				if g.isOwned(x, y, z) {
					// skip straight to the far halo of this row
					x = g.local[0] - 1
					continue
				}
				rank, lc, ok := g.topo.Owner(g.GlobalCoords(x, y, z))
				if !ok {
					continue
				}
				src := g
				if rank != g.comm.Rank() {
					src = g.comm.world.peer(g.name, rank).(*Grid[T])
				}
				g.data[g.Index(x, y, z)] = src.data[src.Index(lc[0], lc[1], lc[2])]
			}
		}
	}
	g.comm.Barrier()
}
