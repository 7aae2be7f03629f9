package sysboundary

import (
	"fmt"

	"github.com/notargets/FSKernel/fields"
	"github.com/notargets/FSKernel/fsgrid"
)

// Faces assigns a boundary type to each domain face (x-, x+, y-, y+, z-, z+)
// and the depth in cells that the type claims.
type Faces struct {
	Types     [NumFaces]Type
	Thickness int
}

// classifier evaluates flags and layers from global coordinates, so every
// rank, halo included, reaches the same answer without communication
type classifier struct {
	topo  fsgrid.Topology
	faces Faces
}

func (c classifier) flagAt(g [3]int) Type {
	w, ok := c.topo.Wrap(g)
	if !ok {
		return DoNotCompute
	}
	for d := 0; d < 3; d++ {
		if c.topo.Periodic[d] {
			continue
		}
		if lo := c.faces.Types[2*d]; lo != NotSysBoundary && w[d] < c.faces.Thickness {
			return lo
		}
		if hi := c.faces.Types[2*d+1]; hi != NotSysBoundary && w[d] >= c.topo.GlobalSize[d]-c.faces.Thickness {
			return hi
		}
	}
	return NotSysBoundary
}

func (c classifier) anyNeighbour(g [3]int, pred func(n [3]int) bool) bool {
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				if pred([3]int{g[0] + dx, g[1] + dy, g[2] + dz}) {
					return true
				}
			}
		}
	}
	return false
}

func (c classifier) isComputed(g [3]int) bool { return c.flagAt(g) == NotSysBoundary }

func (c classifier) isLayer1(g [3]int) bool {
	f := c.flagAt(g)
	return f != NotSysBoundary && f != DoNotCompute && c.anyNeighbour(g, c.isComputed)
}

// layerAt returns the flag and layer of a cell; boundary cells beyond the
// second layer become DO_NOT_COMPUTE
func (c classifier) layerAt(g [3]int) (Type, int32) {
	f := c.flagAt(g)
	if f == NotSysBoundary || f == DoNotCompute {
		return f, 0
	}
	if c.anyNeighbour(g, c.isComputed) {
		return f, 1
	}
	if c.anyNeighbour(g, c.isLayer1) {
		return f, 2
	}
	return DoNotCompute, 0
}

func shift(g [3]int, d, by int) [3]int {
	g[d] += by
	return g
}

// solveMask: interior cells solve everything; first-layer boundary cells
// solve the face B components whose lower neighbour is computed and the edge
// E components touching a computed cell
func (c classifier) solveMask(g [3]int, f Type, layer int32) uint32 {
	if f == NotSysBoundary {
		return fields.SolveAll
	}
	if layer != 1 {
		return 0
	}
	var mask uint32
	for comp := 0; comp < 3; comp++ {
		if c.isComputed(shift(g, comp, -1)) {
			mask |= fields.SolveB(comp)
		}
		t1, t2 := (comp+1)%3, (comp+2)%3
		if c.isComputed(shift(g, t1, -1)) || c.isComputed(shift(g, t2, -1)) ||
			c.isComputed(shift(shift(g, t1, -1), t2, -1)) {
			mask |= fields.SolveE(comp)
		}
	}
	return mask
}

// Classify fills flag, layer and solve mask of every technical cell, halo
// included, and resets the CFL bound.
func Classify(tech *fsgrid.Grid[fields.Technical], faces Faces) error {
	if faces.Thickness < 1 {
		return fmt.Errorf("boundary thickness must be at least 1, got %d", faces.Thickness)
	}
	topo := tech.Topology()
	for d := 0; d < 3; d++ {
		if topo.Periodic[d] {
			continue
		}
		if 2*faces.Thickness >= topo.GlobalSize[d] {
			return fmt.Errorf("axis %d: boundary thickness %d leaves no computed cells in %d",
				d, faces.Thickness, topo.GlobalSize[d])
		}
	}
	c := classifier{topo: topo, faces: faces}
	ls, s := tech.LocalSize(), tech.Stencil()
	for z := -s; z < ls[2]+s; z++ {
		for y := -s; y < ls[1]+s; y++ {
			for x := -s; x < ls[0]+s; x++ {
				g := tech.GlobalCoords(x, y, z)
				f, layer := c.layerAt(g)
				t := tech.Get(x, y, z)
				t.SysBoundaryFlag = int32(f)
				t.SysBoundaryLayer = layer
				t.Solve = c.solveMask(g, f, layer)
				t.ResetMaxFsDt()
			}
		}
	}
	return nil
}
