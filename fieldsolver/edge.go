package fieldsolver

import (
	"math"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// edgeFields are the buffers one edge evaluation reads and writes for a stage
type edgeFields struct {
	perB    *arch.Buf[fields.BField]
	e       *arch.Buf[fields.EField]
	moments *arch.Buf[fields.Moments]
}

func (s *Solver) stageEdgeFields(stage fields.Stage) edgeFields {
	return edgeFields{perB: s.stageB(stage), e: s.stageE(stage), moments: s.stageMoments(stage)}
}

// EdgeElectricField computes the upwinded E component along ax.P on the
// lower edge of cell (i,j,k) for stage, and on final stages tightens the
// cell's CFL bound. The four corners are indexed s1 + 2*s2, where s1 and s2
// are the downward shifts along T1 and T2.
func (s *Solver) EdgeElectricField(ax Axis, stage fields.Stage, i, j, k int) {
	s.edgeElectricField(ax, stage, s.stageEdgeFields(stage), i, j, k)
}

func (s *Solver) edgeElectricField(ax Axis, stage fields.Stage, ef edgeFields, i, j, k int) {
	p, t1, t2 := ax.P, ax.T1, ax.T2
	c := cell{i, j, k}
	var corners [4]cell
	for s2 := 0; s2 < 2; s2++ {
		for s1 := 0; s1 < 2; s1++ {
			corners[s1+2*s2] = ax.corner(c, s1, s2)
		}
	}
	if s.P.Debug {
		s.checkNeighbours("edge electric field", corners[:]...)
	}

	// The T1 component sits on faces shared along T1 and differs between
	// the s2 rows; the T2 component differs between the s1 columns.
	var bt1, perBt1, dBt1dP, dBt1dT2, dperBt1dT2 [2]float64
	var bt2, perBt2, dBt2dP, dBt2dT1, dperBt2dT1 [2]float64
	for n := 0; n < 2; n++ {
		cr := corners[2*n]
		pb, bg, db := at(ef.perB, cr), at(s.g.BgB, cr), at(s.g.DPerB, cr)
		perBt1[n] = pb[t1]
		bt1[n] = pb[t1] + bg[t1]
		dBt1dP[n] = db[fields.DPerBIdx(t1, p)] + bg[fields.BgBDerivIdx(t1, p)]
		dperBt1dT2[n] = db[fields.DPerBIdx(t1, t2)]
		dBt1dT2[n] = dperBt1dT2[n] + bg[fields.BgBDerivIdx(t1, t2)]

		cr = corners[n]
		pb, bg, db = at(ef.perB, cr), at(s.g.BgB, cr), at(s.g.DPerB, cr)
		perBt2[n] = pb[t2]
		bt2[n] = pb[t2] + bg[t2]
		dBt2dP[n] = db[fields.DPerBIdx(t2, p)] + bg[fields.BgBDerivIdx(t2, p)]
		dperBt2dT1[n] = db[fields.DPerBIdx(t2, t1)]
		dBt2dT1[n] = dperBt2dT1[n] + bg[fields.BgBDerivIdx(t2, t1)]
	}

	minRhom, maxRhom := math.MaxFloat64, math.SmallestNonzeroFloat64
	for _, cr := range corners {
		rhom := at(ef.moments, cr)[fields.RhoM]
		minRhom = math.Min(minRhom, rhom)
		maxRhom = math.Max(maxRhom, rhom)
	}

	var (
		ePart                      [4]float64
		aPos1, aNeg1, aPos2, aNeg2 float64
		maxV                       float64
	)
	for s2 := 0; s2 < 2; s2++ {
		for s1 := 0; s1 < 2; s1++ {
			n := s1 + 2*s2
			cr := corners[n]
			m := at(ef.moments, cr)
			dm := at(s.g.DMoments, cr)
			v1, v2 := m[fields.VX+t1], m[fields.VX+t2]

			e := bt1[s2]*v2 - bt2[s1]*v1

			if s.P.Resistivity > 0 {
				pb, bg, db := at(ef.perB, cr), at(s.g.BgB, cr), at(s.g.DPerB, cr)
				bx, by, bz := pb[0]+bg[0], pb[1]+bg[1], pb[2]+bg[2]
				e += s.P.Resistivity * math.Sqrt(bx*bx+by*by+bz*bz) / s.P.rhoqFloor(m[fields.RhoQ]) / Mu0 *
					(db[fields.DPerBIdx(t2, t1)]/s.d[t1] - db[fields.DPerBIdx(t1, t2)]/s.d[t2])
			}
			if s.P.OhmHallTerm > 0 {
				e += at(s.g.EHall, cr)[fields.EHallIdx(p, s1, s2)]
			}
			if s.P.OhmGradPeTerm > 0 {
				e += at(s.g.EGradPe, cr)[p]
			}

			dir1, dir2 := sign(s1), sign(s2)
			if !s.P.FirstOrderSpace {
				dV2 := func(a int) float64 { return dm[fields.DMom(fields.VX+t2, a)] }
				dV1 := func(a int) float64 { return dm[fields.DMom(fields.VX+t1, a)] }
				e += half * ((bt1[s2]+dir2*half*dBt1dT2[s2])*(dir1*dV2(t1)+dir2*dV2(t2)) +
					dir2*dBt1dT2[s2]*v2 + sixth*dBt1dP[s2]*dV2(p))
				e -= half * ((bt2[s1]+dir1*half*dBt2dT1[s1])*(dir1*dV1(t1)+dir2*dV1(t2)) +
					dir1*dBt2dT1[s1]*v1 + sixth*dBt2dP[s1]*dV1(p))
			}

			ws := s.waveSpeed(ax, ef.perB, ef.moments, cr, cornerB{
				bt1: bt1[s2], bt2: bt2[s1],
				dBt1dP: dBt1dP[s2], dBt1dT2: dBt1dT2[s2],
				dBt2dP: dBt2dP[s1], dBt2dT1: dBt2dT1[s1],
				dir1: dir1, dir2: dir2,
			}, minRhom, maxRhom)
			cw := math.Min(s.P.MaxWaveVelocity, ws.Magnetosonic()+ws.VW)
			aNeg1 = math.Max(aNeg1, -v1+cw)
			aPos1 = math.Max(aPos1, v1+cw)
			aNeg2 = math.Max(aNeg2, -v2+cw)
			aPos2 = math.Max(aPos2, v2+cw)
			maxV = math.Max(maxV, ws.CFL(v1, v2))
			ePart[n] = e
		}
	}

	ed := aPos1*aPos2*ePart[3] + aPos1*aNeg2*ePart[1] + aNeg1*aPos2*ePart[2] + aNeg1*aNeg2*ePart[0]
	ed /= (aPos1+aNeg1)*(aPos2+aNeg2) + eps
	if s.P.DiffusiveETerms {
		w1 := aPos1 * aNeg1 / (aPos1 + aNeg1 + eps)
		w2 := aPos2 * aNeg2 / (aPos2 + aNeg2 + eps)
		if s.P.FirstOrderSpace {
			ed -= w2 * (perBt1[0] - perBt1[1])
			ed += w1 * (perBt2[0] - perBt2[1])
		} else {
			ed -= w2 * ((perBt1[0] - half*dperBt1dT2[0]) - (perBt1[1] + half*dperBt1dT2[1]))
			ed += w1 * ((perBt2[0] - half*dperBt2dT1[0]) - (perBt2[1] + half*dperBt2dT1[1]))
		}
	}
	at(ef.e, c)[p] = ed

	if stage.IsFinal() && maxV != 0 {
		t := s.tech(i, j, k)
		t.MaxFsDt = math.Min(t.MaxFsDt, math.Min(s.d[t1], s.d[t2])/maxV)
	}
}
