package fieldsolver

import (
	"math"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// WaveSpeeds are the Alfven, sound and whistler speeds at an edge corner
type WaveSpeeds struct {
	VA, VS, VW float64
}

// Magnetosonic is the fast speed used for upwinding
func (w WaveSpeeds) Magnetosonic() float64 { return math.Sqrt(w.VA*w.VA + w.VS*w.VS) }

// CFL is the fastest signal for a flow of (v0, v1) across the edge
func (w WaveSpeeds) CFL(v0, v1 float64) float64 {
	v := math.Sqrt(v0*v0 + v1*v1)
	return math.Max(v+w.Magnetosonic(), v+w.VW)
}

// cornerB is the reconstructed transverse field of one corner together with
// the interpolation direction towards the edge
type cornerB struct {
	bt1, bt2        float64
	dBt1dP, dBt1dT2 float64
	dBt2dP, dBt2dT1 float64
	dir1, dir2      float64
}

// waveSpeed reconstructs B^2, the density and the pressure at the edge from
// the corner cell c and its neighbour along the primary axis. The density is
// clamped into the corner range [minRhom, maxRhom].
func (s *Solver) waveSpeed(ax Axis, perB *arch.Buf[fields.BField], moments *arch.Buf[fields.Moments],
	c cell, cb cornerB, minRhom, maxRhom float64) WaveSpeeds {
	nb := c.shift(ax.P, 1)
	perb, nbrPerb := at(perB, c), at(perB, nb)
	bgb, nbrBgb := at(s.g.BgB, c), at(s.g.BgB, nb)
	dperb, nbrDperb := at(s.g.DPerB, c), at(s.g.DPerB, nb)
	m := at(moments, c)
	dm := at(s.g.DMoments, c)

	p, t1, t2 := ax.P, ax.T1, ax.T2
	bCur := perb[p] + bgb[p]
	bNbr := nbrPerb[p] + nbrBgb[p]
	a0 := half * (bNbr + bCur)
	aP := bNbr - bCur

	recon := func(q int) float64 {
		return m[q] + cb.dir1*half*dm[fields.DMom(q, t1)] + cb.dir2*half*dm[fields.DMom(q, t2)]
	}
	rhom := recon(fields.RhoM)
	if rhom < minRhom {
		rhom = minRhom
	} else if rhom > maxRhom {
		rhom = maxRhom
	}
	p11 := math.Max(recon(fields.P11), 0)
	p22 := math.Max(recon(fields.P22), 0)
	p33 := math.Max(recon(fields.P33), 0)

	dT1 := func(r *fields.DPerB, g *fields.BgBField) float64 {
		return r[fields.DPerBIdx(p, t1)] + g[fields.BgBDerivIdx(p, t1)]
	}
	dT2 := func(r *fields.DPerB, g *fields.BgBField) float64 {
		return r[fields.DPerBIdx(p, t2)] + g[fields.BgBDerivIdx(p, t2)]
	}
	aT1 := dT1(nbrDperb, nbrBgb) + dT1(dperb, bgb)
	aPT1 := dT1(nbrDperb, nbrBgb) - dT1(dperb, bgb)
	aT2 := dT2(nbrDperb, nbrBgb) + dT2(dperb, bgb)
	aPT2 := dT2(nbrDperb, nbrBgb) - dT2(dperb, bgb)

	bp := a0 + cb.dir1*half*aT1 + cb.dir2*half*aT2
	bpJump := aP + cb.dir1*half*aPT1 + cb.dir2*half*aPT2
	b1 := cb.bt1 + cb.dir2*half*cb.dBt1dT2
	b2 := cb.bt2 + cb.dir1*half*cb.dBt2dT1
	bmag2 := bp*bp + twelfth*bpJump*bpJump +
		b1*b1 + twelfth*cb.dBt1dP*cb.dBt1dP +
		b2*b2 + twelfth*cb.dBt2dP*cb.dBt2dP

	vA2 := divideIfNonZero(bmag2, Mu0*rhom)
	vS2 := divideIfNonZero(p11+p22+p33, 2*rhom)
	var vW float64
	if s.P.OhmHallTerm > 0 {
		// whistler dispersion at the grid scale, hydrogen plasma
		dx := s.d[fields.X]
		scale := dx * dx * rhom * ChargeElem * ChargeElem * Mu0
		mp2 := MassProton * MassProton
		vW = math.Sqrt(vA2) * (1 + divideIfNonZero(2*math.Pi*math.Pi*mp2, scale)/
			math.Sqrt(1+divideIfNonZero(math.Pi*math.Pi*mp2, scale)))
	}
	return WaveSpeeds{VA: math.Sqrt(vA2), VS: math.Sqrt(vS2), VW: vW}
}
