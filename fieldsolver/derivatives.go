package fieldsolver

import (
	"math"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

func at[T any](b *arch.Buf[T], c cell) *T { return b.Get(c[0], c[1], c[2]) }

// CalculateDerivatives fills dPerB and dMoments with limited, undivided
// one-cell differences of the stage's B and moments. The B halo is always
// refreshed first; the moment halo only when communicateMoments is set. The
// derivative halos are left to the consumers.
func (s *Solver) CalculateDerivatives(stage fields.Stage, communicateMoments bool) {
	perB := s.stageB(stage)
	moments := s.stageMoments(stage)
	s.exchange(perB)
	if communicateMoments {
		s.exchange(moments)
	}
	s.forCells(func(i, j, k int) {
		s.derivatives(perB, moments, i, j, k, stage)
	})
}

// electron pressure without the constant prefactor
func (s *Solver) pe(m *fields.Moments) float64 {
	return math.Pow(m[fields.RhoQ]/ChargeElem, s.P.ElectronPTIndex)
}

func (s *Solver) derivatives(perB *arch.Buf[fields.BField], moments *arch.Buf[fields.Moments],
	i, j, k int, stage fields.Stage) {
	t := s.tech(i, j, k)
	if isSkipped(t) {
		return
	}
	if !isStencilCell(t) {
		cond := s.condition(t)
		for comp := 0; comp < 3; comp++ {
			cond.Derivatives(s.g.DPerB, s.g.DMoments, i, j, k, stage, comp)
		}
		return
	}
	c := cell{i, j, k}
	if s.P.Debug {
		s.checkNeighbours("derivatives", c.shift(0, -1), c.shift(0, 1), c.shift(1, -1), c.shift(1, 1),
			c.shift(2, -1), c.shift(2, 1))
	}
	db := s.g.DPerB.Get(i, j, k)
	dm := s.g.DMoments.Get(i, j, k)
	cb := perB.Get(i, j, k)
	cm := moments.Get(i, j, k)
	// second derivatives feed the second order Hall term and are not taken
	// on the boundary layer
	second := s.P.OhmHallTerm > 1 && t.SysBoundaryLayer != 1

	for a := 0; a < 3; a++ {
		lc, rc := c.shift(a, -1), c.shift(a, 1)
		lb, rb := at(perB, lc), at(perB, rc)
		lm, rm := at(moments, lc), at(moments, rc)
		for q := 0; q < fields.NMoments; q++ {
			dm[fields.DMom(q, a)] = s.limiter(lm[q], cm[q], rm[q])
		}
		if s.P.OhmGradPeTerm > 0 {
			dm[fields.DMom(fields.Pe, a)] = s.peConst * s.limiter(s.pe(lm), s.pe(cm), s.pe(rm))
		} else {
			dm[fields.DMom(fields.Pe, a)] = 0
		}
		for comp := 0; comp < 3; comp++ {
			if comp == a {
				continue
			}
			db[fields.DPerBIdx(comp, a)] = s.limiter(lb[comp], cb[comp], rb[comp])
			if second {
				db[fields.DPerB2Idx(comp, a)] = lb[comp] + rb[comp] - 2*cb[comp]
			} else {
				db[fields.DPerB2Idx(comp, a)] = 0
			}
		}
	}

	for comp := 0; comp < 3; comp++ {
		if !second {
			db[fields.DPerBMixedIdx(comp)] = 0
			continue
		}
		a, b := (comp+1)%3, (comp+2)%3
		botLeft := at(perB, c.shift(a, -1).shift(b, -1))[comp]
		topRight := at(perB, c.shift(a, 1).shift(b, 1))[comp]
		botRight := at(perB, c.shift(a, 1).shift(b, -1))[comp]
		topLeft := at(perB, c.shift(a, -1).shift(b, 1))[comp]
		db[fields.DPerBMixedIdx(comp)] = fourth * (botLeft + topRight - botRight - topLeft)
	}
}

// CalculateBVOLDerivatives fills the transverse derivatives of the volume
// averaged perturbed B
func (s *Solver) CalculateBVOLDerivatives() {
	vol := s.g.Vol
	s.exchange(vol)
	s.forCells(func(i, j, k int) {
		t := s.tech(i, j, k)
		if isSkipped(t) {
			return
		}
		if !isStencilCell(t) {
			cond := s.condition(t)
			for comp := 0; comp < 3; comp++ {
				cond.BVOLDerivatives(vol, i, j, k, comp)
			}
			return
		}
		c := cell{i, j, k}
		v := vol.Get(i, j, k)
		for a := 0; a < 3; a++ {
			l, r := at(vol, c.shift(a, -1)), at(vol, c.shift(a, 1))
			for comp := 0; comp < 3; comp++ {
				if comp == a {
					continue
				}
				n := fields.PerBXVol + comp
				v[fields.DPerBVolIdx(comp, a)] = s.limiter(l[n], v[n], r[n])
			}
		}
	})
}
