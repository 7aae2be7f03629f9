package fsgrid

import (
	"fmt"
)

// DefaultStencil is the halo width required by the field solver stencils.
const DefaultStencil = 2

// Topology describes the global Cartesian mesh and its block decomposition
// over a process grid.
type Topology struct {
	GlobalSize [3]int
	Tasks      [3]int
	Periodic   [3]bool
	Spacing    [3]float64
	Stencil    int
}

// Validate checks that the decomposition is realizable.
func (t Topology) Validate() error {
	for d := 0; d < 3; d++ {
		if t.GlobalSize[d] < 1 {
			return fmt.Errorf("global size along axis %d must be positive, got %d", d, t.GlobalSize[d])
		}
		if t.Tasks[d] < 1 {
			return fmt.Errorf("task count along axis %d must be positive, got %d", d, t.Tasks[d])
		}
		if t.Spacing[d] <= 0 {
			return fmt.Errorf("cell spacing along axis %d must be positive, got %g", d, t.Spacing[d])
		}
		if t.Stencil < 1 {
			return fmt.Errorf("stencil width must be positive, got %d", t.Stencil)
		}
		if t.GlobalSize[d]/t.Tasks[d] < t.Stencil && t.Tasks[d] > 1 {
			return fmt.Errorf("axis %d: %d cells over %d tasks leaves blocks thinner than the stencil (%d)",
				d, t.GlobalSize[d], t.Tasks[d], t.Stencil)
		}
	}
	return nil
}

// NumRanks is the size of the process grid.
func (t Topology) NumRanks() int { return t.Tasks[0] * t.Tasks[1] * t.Tasks[2] }

// RankCoords returns the process grid position of rank, x fastest.
func (t Topology) RankCoords(rank int) [3]int {
	return [3]int{
		rank % t.Tasks[0],
		(rank / t.Tasks[0]) % t.Tasks[1],
		rank / (t.Tasks[0] * t.Tasks[1]),
	}
}

// RankOf is the inverse of RankCoords.
func (t Topology) RankOf(c [3]int) int {
	return c[0] + t.Tasks[0]*(c[1]+t.Tasks[1]*c[2])
}

// Block sizes are n/tasks with the remainder spread over the low ranks.
func blockSize(n, tasks, r int) int {
	s := n / tasks
	if r < n%tasks {
		s++
	}
	return s
}

func blockStart(n, tasks, r int) int {
	base, rem := n/tasks, n%tasks
	return r*base + min(r, rem)
}

func blockOwner(n, tasks, g int) int {
	base, rem := n/tasks, n%tasks
	if g < rem*(base+1) {
		return g / (base + 1)
	}
	return rem + (g-rem*(base+1))/base
}

// LocalSize is the number of cells owned by rank along each axis.
func (t Topology) LocalSize(rank int) (ls [3]int) {
	rc := t.RankCoords(rank)
	for d := 0; d < 3; d++ {
		ls[d] = blockSize(t.GlobalSize[d], t.Tasks[d], rc[d])
	}
	return
}

// LocalStart is the global index of the first cell owned by rank.
func (t Topology) LocalStart(rank int) (st [3]int) {
	rc := t.RankCoords(rank)
	for d := 0; d < 3; d++ {
		st[d] = blockStart(t.GlobalSize[d], t.Tasks[d], rc[d])
	}
	return
}

// Wrap maps a global coordinate back into the domain along periodic axes.
// ok is false when the coordinate lies outside a non-periodic axis.
func (t Topology) Wrap(g [3]int) (w [3]int, ok bool) {
	for d := 0; d < 3; d++ {
		n := t.GlobalSize[d]
		v := g[d]
		if v < 0 || v >= n {
			if !t.Periodic[d] {
				return g, false
			}
			v = ((v % n) + n) % n
		}
		w[d] = v
	}
	return w, true
}

// Owner locates the rank owning global cell g and its local coordinates there.
func (t Topology) Owner(g [3]int) (rank int, local [3]int, ok bool) {
	w, ok := t.Wrap(g)
	if !ok {
		return 0, local, false
	}
	var rc [3]int
	for d := 0; d < 3; d++ {
		rc[d] = blockOwner(t.GlobalSize[d], t.Tasks[d], w[d])
		local[d] = w[d] - blockStart(t.GlobalSize[d], t.Tasks[d], rc[d])
	}
	return t.RankOf(rc), local, true
}
