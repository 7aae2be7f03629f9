package fieldsolver

import (
	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// CalculateGradPeTerm fills EGradPe with -grad(Pe)/rhoq. The moment
// derivative halo is refreshed first.
func (s *Solver) CalculateGradPeTerm(stage fields.Stage) {
	s.exchange(s.g.DMoments)
	moments := s.stageMoments(stage)
	s.forCells(func(i, j, k int) {
		s.gradPeTerm(moments, i, j, k)
	})
}

func (s *Solver) gradPeTerm(moments *arch.Buf[fields.Moments], i, j, k int) {
	t := s.tech(i, j, k)
	if isSkipped(t) {
		return
	}
	if !isStencilCell(t) {
		cond := s.condition(t)
		for comp := 0; comp < 3; comp++ {
			cond.GradPeElectricField(s.g.EGradPe, i, j, k, comp)
		}
		return
	}
	rhoq := s.P.rhoqFloor(moments.Get(i, j, k)[fields.RhoQ])
	dm := s.g.DMoments.Get(i, j, k)
	out := s.g.EGradPe.Get(i, j, k)
	for a := 0; a < 3; a++ {
		out[a] = -dm[fields.DMom(fields.Pe, a)] / (rhoq * s.d[a])
	}
}
