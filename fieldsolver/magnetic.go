package fieldsolver

import (
	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// PropagateMagneticField applies Faraday's law on the face-centered B.
//
//	Order1:      perB    += dt * curl(E)
//	Order2Step1: perBDt2  = perB + dt/2 * curl(E)
//	Order2Step2: perB    += dt * curl(EDt2)
//
// Boundary cells update only the components of their solve mask. After a
// halo exchange the remaining components come from the boundary conditions,
// then the halo is exchanged again.
func (s *Solver) PropagateMagneticField(dt float64, stage fields.Stage) {
	s.forCells(func(i, j, k int) {
		t := s.tech(i, j, k)
		switch {
		case isInterior(t):
			s.faraday(stage, dt, i, j, k, fields.SolveAll)
		case !isSkipped(t):
			s.faraday(stage, dt, i, j, k, t.Solve)
		}
	})

	out := s.stageB(stage)
	s.exchange(out)
	s.forCells(func(i, j, k int) {
		t := s.tech(i, j, k)
		if isInterior(t) || isSkipped(t) {
			return
		}
		s.boundaryMagneticField(out, t, i, j, k, dt)
	})
	s.exchange(out)
}

func (s *Solver) boundaryMagneticField(perB *arch.Buf[fields.BField], t *fields.Technical, i, j, k int, dt float64) {
	cond := s.condition(t)
	rec := perB.Get(i, j, k)
	for comp := 0; comp < 3; comp++ {
		if t.Solve&fields.SolveB(comp) == 0 {
			rec[comp] = cond.MagneticField(perB, s.g.Technical, i, j, k, dt, comp)
		}
	}
	cond.MagneticFieldProjection(perB, s.g.Technical, i, j, k)
}

func (s *Solver) faraday(stage fields.Stage, dt float64, i, j, k int, mask uint32) {
	base, dst, e := s.g.PerB, s.g.PerB, s.g.E
	factor := 1.0
	switch stage {
	case fields.Order2Step1:
		dst = s.g.PerBDt2
		factor = half
	case fields.Order2Step2:
		e = s.g.EDt2
	}
	c := cell{i, j, k}
	if s.P.Debug {
		s.checkNeighbours("faraday", c.shift(0, 1), c.shift(1, 1), c.shift(2, 1))
	}
	e0 := at(e, c)
	for comp, ax := range axes {
		if mask&fields.SolveB(comp) == 0 {
			continue
		}
		eT1 := at(e, c.shift(ax.T1, 1))
		eT2 := at(e, c.shift(ax.T2, 1))
		curl := (eT2[ax.T1]-e0[ax.T1])/s.d[ax.T2] + (e0[ax.T2]-eT1[ax.T2])/s.d[ax.T1]
		at(dst, c)[comp] = at(base, c)[comp] + factor*dt*curl
	}
}
