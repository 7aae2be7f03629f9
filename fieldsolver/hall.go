package fieldsolver

import (
	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// CalculateHallTerm fills EHall with J x B / rhoq on the four edges of each
// axis of every owned cell. The B derivative halo is refreshed first, and the
// moment derivative halo too when communicateMomentDerivatives is set.
func (s *Solver) CalculateHallTerm(stage fields.Stage, communicateMomentDerivatives bool) {
	s.exchange(s.g.DPerB)
	if communicateMomentDerivatives {
		s.exchange(s.g.DMoments)
	}
	perB := s.stageB(stage)
	moments := s.stageMoments(stage)
	s.forCells(func(i, j, k int) {
		s.hallTerm(perB, moments, i, j, k)
	})
}

func (s *Solver) hallTerm(perB *arch.Buf[fields.BField], moments *arch.Buf[fields.Moments], i, j, k int) {
	t := s.tech(i, j, k)
	if isSkipped(t) {
		return
	}
	if !isStencilCell(t) {
		cond := s.condition(t)
		for comp := 0; comp < 3; comp++ {
			cond.HallElectricField(s.g.EHall, i, j, k, comp)
		}
		return
	}
	c := cell{i, j, k}
	if s.P.Debug {
		s.checkNeighbours("hall term", c.shift(0, 1), c.shift(1, 1), c.shift(2, 1))
	}
	rhoq := s.P.rhoqFloor(moments.Get(i, j, k)[fields.RhoQ])
	out := s.g.EHall.Get(i, j, k)
	for _, ax := range axes {
		for s2 := 0; s2 < 2; s2++ {
			for s1 := 0; s1 < 2; s1++ {
				out[fields.EHallIdx(ax.P, s1, s2)] = s.hallEdge(ax, perB, c, s1, s2) / rhoq
			}
		}
	}
}

// hallEdge returns (J x B) along ax.P at the edge of cell c offset by s1, s2
// cells along T1, T2, with B and its derivatives Taylor-shifted from the cell
// center
func (s *Solver) hallEdge(ax Axis, perB *arch.Buf[fields.BField], c cell, s1, s2 int) float64 {
	p, t1, t2 := ax.P, ax.T1, ax.T2
	var off [3]float64
	off[t1] = float64(s1) - half
	off[t2] = float64(s2) - half

	pb := at(perB, c)
	bg := at(s.g.BgB, c)
	db := at(s.g.DPerB, c)

	bP := half*(pb[p]+at(perB, c.shift(p, 1))[p]) + bg[p]
	bP += off[t1]*(db[fields.DPerBIdx(p, t1)]+bg[fields.BgBDerivIdx(p, t1)]) +
		off[t2]*(db[fields.DPerBIdx(p, t2)]+bg[fields.BgBDerivIdx(p, t2)])
	bT1 := at(perB, c.shift(t1, s1))[t1] + bg[t1] +
		off[t2]*(db[fields.DPerBIdx(t1, t2)]+bg[fields.BgBDerivIdx(t1, t2)])
	bT2 := at(perB, c.shift(t2, s2))[t2] + bg[t2] +
		off[t1]*(db[fields.DPerBIdx(t2, t1)]+bg[fields.BgBDerivIdx(t2, t1)])

	// d(perB_comp)/d(axis) at the edge; the background is curl free
	deriv := func(comp, axis int) float64 {
		v := db[fields.DPerBIdx(comp, axis)]
		if s.P.OhmHallTerm > 1 {
			other := 3 - comp - axis
			v += off[axis]*db[fields.DPerB2Idx(comp, axis)] + off[other]*db[fields.DPerBMixedIdx(comp)]
		}
		return v / s.d[axis]
	}
	jT1 := (deriv(p, t2) - deriv(t2, p)) / Mu0
	jT2 := (deriv(t1, p) - deriv(p, t1)) / Mu0
	return jT1*bT2 - jT2*bT1
}
