package fieldsolver

import "github.com/notargets/FSKernel/fields"

// CalculateVolumeAveragedFields fills the cell-centered B and E from the
// face and edge values
func (s *Solver) CalculateVolumeAveragedFields() {
	perB, e, vol := s.g.PerB, s.g.E, s.g.Vol
	s.forCells(func(i, j, k int) {
		if isSkipped(s.tech(i, j, k)) {
			return
		}
		c := cell{i, j, k}
		v := vol.Get(i, j, k)
		pb := perB.Get(i, j, k)
		for comp, ax := range axes {
			v[fields.PerBXVol+comp] = half * (pb[comp] + at(perB, c.shift(comp, 1))[comp])
			v[fields.EXVol+comp] = fourth * (at(e, c)[comp] +
				at(e, c.shift(ax.T1, 1))[comp] +
				at(e, c.shift(ax.T2, 1))[comp] +
				at(e, c.shift(ax.T1, 1).shift(ax.T2, 1))[comp])
		}
	})
}
