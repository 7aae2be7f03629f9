package fieldsolver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// Diagnostics are rank-local summaries of the field state
type Diagnostics struct {
	MaxDivB        float64 // max |div B| over computed cells, from the face B
	MagneticEnergy float64 // sum of B^2/(2 mu0) dV over computed cells, background included
	MinMaxFsDt     float64
	ComputedCells  int
}

type energyRow struct {
	k int
}

type energyVisitor struct {
	s      *Solver
	planes []float64
}

func (v *energyVisitor) EnterRow(outer int) energyRow { return energyRow{k: outer} }

func (v *energyVisitor) Visit(ctx *energyRow, i, j, k, _ int) {
	if !isInterior(v.s.tech(i, j, k)) {
		return
	}
	vol := v.s.g.Vol.Get(i, j, k)
	bg := v.s.g.BgB.Get(i, j, k)
	var b2 float64
	for comp := 0; comp < 3; comp++ {
		b := vol[fields.PerBXVol+comp] + bg[fields.BgBX+comp]
		b2 += b * b
	}
	// one goroutine owns a plane at a time
	v.planes[ctx.k] += b2
}

// Diagnostics reads the volume averages, so call it after PropagateFields
func (s *Solver) Diagnostics() Diagnostics {
	ls := s.g.LocalSize()
	r := arch.Range3(ls)
	perB := s.g.PerB

	divB := []float64{0}
	arch.ParallelReduce(s.ex, r, arch.Max, divB, func(i, j, k, _ int, acc []float64) {
		if !isInterior(s.tech(i, j, k)) {
			return
		}
		c := cell{i, j, k}
		b := perB.Get(i, j, k)
		var div float64
		for a := 0; a < 3; a++ {
			div += (at(perB, c.shift(a, 1))[a] - b[a]) / s.d[a]
		}
		acc[0] = math.Max(acc[0], math.Abs(div))
	})

	counts := []int{0}
	arch.ParallelReduce(s.ex, r, arch.Sum, counts, func(i, j, k, _ int, acc []int) {
		if isInterior(s.tech(i, j, k)) {
			acc[0]++
		}
	})

	ev := &energyVisitor{s: s, planes: make([]float64, ls[2])}
	arch.ParallelForRows[energyRow](s.ex, r, ev)
	dV := s.d[0] * s.d[1] * s.d[2]

	return Diagnostics{
		MaxDivB:        divB[0],
		MagneticEnergy: floats.Sum(ev.planes) * dV / (2 * Mu0),
		MinMaxFsDt:     s.localMaxFsDt(),
		ComputedCells:  counts[0],
	}
}
