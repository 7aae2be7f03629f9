package fieldsolver

import (
	"github.com/notargets/FSKernel/fields"
)

// CalculateUpwindedElectricField computes E (EDt2 on the first RK2 stage) on
// every owned cell and exchanges its halo. The Hall and grad Pe halos are
// refreshed first; when neither term is active the derivative halos are
// refreshed instead.
func (s *Solver) CalculateUpwindedElectricField(stage fields.Stage) {
	if s.P.OhmHallTerm > 0 {
		s.exchange(s.g.EHall)
	}
	if s.P.OhmGradPeTerm > 0 {
		s.exchange(s.g.EGradPe)
	}
	if s.P.OhmHallTerm == 0 && s.P.OhmGradPeTerm == 0 {
		s.exchange(s.g.DPerB)
		s.exchange(s.g.DMoments)
	}

	ef := s.stageEdgeFields(stage)
	s.forCells(func(i, j, k int) {
		s.electricField(stage, ef, i, j, k)
	})
	s.exchange(ef.e)
}

// electricField solves each E component whose solve bit is set and hands the
// others to the cell's boundary condition
func (s *Solver) electricField(stage fields.Stage, ef edgeFields, i, j, k int) {
	t := s.tech(i, j, k)
	if isSkipped(t) {
		return
	}
	for d := 0; d < 3; d++ {
		if t.Solve&fields.SolveE(d) != 0 {
			s.edgeElectricField(AxisOf(d), stage, ef, i, j, k)
		} else {
			s.condition(t).ElectricField(ef.e, i, j, k, d)
		}
	}
}
