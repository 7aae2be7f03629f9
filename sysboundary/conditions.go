package sysboundary

import (
	"sort"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// DoNotComputeCondition leaves every field untouched
type DoNotComputeCondition struct{}

func (DoNotComputeCondition) Type() Type { return DoNotCompute }

func (DoNotComputeCondition) MagneticField(*arch.Buf[fields.BField], *arch.Buf[fields.Technical],
	int, int, int, float64, int) float64 {
	return 0
}
func (DoNotComputeCondition) MagneticFieldProjection(*arch.Buf[fields.BField], *arch.Buf[fields.Technical], int, int, int) {
}
func (DoNotComputeCondition) ElectricField(*arch.Buf[fields.EField], int, int, int, int) {}
func (DoNotComputeCondition) HallElectricField(*arch.Buf[fields.EHall], int, int, int, int) {}
func (DoNotComputeCondition) GradPeElectricField(*arch.Buf[fields.EGradPe], int, int, int, int) {}
func (DoNotComputeCondition) Derivatives(*arch.Buf[fields.DPerB], *arch.Buf[fields.DMoments],
	int, int, int, fields.Stage, int) {
}
func (DoNotComputeCondition) BVOLDerivatives(*arch.Buf[fields.VolFields], int, int, int, int) {}

// zeroing shared by the field boundaries

func zeroElectric(e *arch.Buf[fields.EField], i, j, k, comp int) {
	e.Get(i, j, k)[comp] = 0
}

func zeroHall(eHall *arch.Buf[fields.EHall], i, j, k, comp int) {
	rec := eHall.Get(i, j, k)
	for s2 := 0; s2 < 2; s2++ {
		for s1 := 0; s1 < 2; s1++ {
			rec[fields.EHallIdx(comp, s1, s2)] = 0
		}
	}
}

func zeroGradPe(eGradPe *arch.Buf[fields.EGradPe], i, j, k, comp int) {
	eGradPe.Get(i, j, k)[comp] = 0
}

// zeroDerivatives clears every derivative taken along axis
func zeroDerivatives(dPerB *arch.Buf[fields.DPerB], dMoments *arch.Buf[fields.DMoments], i, j, k, axis int) {
	dm := dMoments.Get(i, j, k)
	for q := 0; q <= fields.Pe; q++ {
		dm[fields.DMom(q, axis)] = 0
	}
	db := dPerB.Get(i, j, k)
	for c := 0; c < 3; c++ {
		if c == axis {
			continue
		}
		db[fields.DPerBIdx(c, axis)] = 0
		db[fields.DPerB2Idx(c, axis)] = 0
		// the mixed derivative of c runs along both axes other than c
		db[fields.DPerBMixedIdx(c)] = 0
	}
}

func zeroBVOLDerivatives(vol *arch.Buf[fields.VolFields], i, j, k, axis int) {
	v := vol.Get(i, j, k)
	for c := 0; c < 3; c++ {
		if c != axis {
			v[fields.DPerBVolIdx(c, axis)] = 0
		}
	}
}

// OutflowCondition copies B from the closest computed cell and zeroes the
// electric field and derivatives
type OutflowCondition struct {
	offsets [][3]int
}

// NewOutflow precomputes the search order of neighbours within the halo
func NewOutflow(stencil int) *OutflowCondition {
	var offs [][3]int
	for dz := -stencil; dz <= stencil; dz++ {
		for dy := -stencil; dy <= stencil; dy++ {
			for dx := -stencil; dx <= stencil; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offs = append(offs, [3]int{dx, dy, dz})
			}
		}
	}
	d2 := func(o [3]int) int { return o[0]*o[0] + o[1]*o[1] + o[2]*o[2] }
	sort.SliceStable(offs, func(a, b int) bool { return d2(offs[a]) < d2(offs[b]) })
	return &OutflowCondition{offsets: offs}
}

func (*OutflowCondition) Type() Type { return Outflow }

// ClosestComputedCell returns the nearest NOT_SYSBOUNDARY neighbour within the
// halo, ties broken by scan order
func (oc *OutflowCondition) ClosestComputedCell(tech *arch.Buf[fields.Technical], i, j, k int) (n [3]int, ok bool) {
	for _, o := range oc.offsets {
		t := tech.Get(i+o[0], j+o[1], k+o[2])
		if t != nil && Type(t.SysBoundaryFlag) == NotSysBoundary {
			return [3]int{i + o[0], j + o[1], k + o[2]}, true
		}
	}
	return n, false
}

func (oc *OutflowCondition) MagneticField(perB *arch.Buf[fields.BField], tech *arch.Buf[fields.Technical],
	i, j, k int, _ float64, comp int) float64 {
	n, ok := oc.ClosestComputedCell(tech, i, j, k)
	if !ok {
		return perB.Get(i, j, k)[comp]
	}
	return perB.Get(n[0], n[1], n[2])[comp]
}

func (*OutflowCondition) MagneticFieldProjection(*arch.Buf[fields.BField], *arch.Buf[fields.Technical], int, int, int) {
}

func (*OutflowCondition) ElectricField(e *arch.Buf[fields.EField], i, j, k, comp int) {
	zeroElectric(e, i, j, k, comp)
}

func (*OutflowCondition) HallElectricField(eHall *arch.Buf[fields.EHall], i, j, k, comp int) {
	zeroHall(eHall, i, j, k, comp)
}

func (*OutflowCondition) GradPeElectricField(eGradPe *arch.Buf[fields.EGradPe], i, j, k, comp int) {
	zeroGradPe(eGradPe, i, j, k, comp)
}

func (*OutflowCondition) Derivatives(dPerB *arch.Buf[fields.DPerB], dMoments *arch.Buf[fields.DMoments],
	i, j, k int, _ fields.Stage, comp int) {
	zeroDerivatives(dPerB, dMoments, i, j, k, comp)
}

func (*OutflowCondition) BVOLDerivatives(vol *arch.Buf[fields.VolFields], i, j, k, comp int) {
	zeroBVOLDerivatives(vol, i, j, k, comp)
}

// Face numbering used by templates: x-, x+, y-, y+, z-, z+
const NumFaces = 6

// SetByUserCondition imposes a fixed perturbed B per domain face
type SetByUserCondition struct {
	Template  [NumFaces]fields.BField
	Thickness int
}

func NewSetByUser(template [NumFaces]fields.BField, thickness int) *SetByUserCondition {
	if thickness < 1 {
		thickness = 1
	}
	return &SetByUserCondition{Template: template, Thickness: thickness}
}

func (*SetByUserCondition) Type() Type { return SetByUser }

// Face returns the first domain face the cell lies on, or -1
func (sc *SetByUserCondition) Face(tech *arch.Buf[fields.Technical], i, j, k int) int {
	g := tech.Grid()
	gc := g.GlobalCoords(i, j, k)
	n := g.GlobalSize()
	for d := 0; d < 3; d++ {
		if g.IsPeriodic(d) {
			continue
		}
		if gc[d] < sc.Thickness {
			return 2 * d
		}
		if gc[d] >= n[d]-sc.Thickness {
			return 2*d + 1
		}
	}
	return -1
}

func (sc *SetByUserCondition) MagneticField(perB *arch.Buf[fields.BField], tech *arch.Buf[fields.Technical],
	i, j, k int, _ float64, comp int) float64 {
	f := sc.Face(tech, i, j, k)
	if f < 0 {
		return perB.Get(i, j, k)[comp]
	}
	return sc.Template[f][comp]
}

func (*SetByUserCondition) MagneticFieldProjection(*arch.Buf[fields.BField], *arch.Buf[fields.Technical], int, int, int) {
}

func (*SetByUserCondition) ElectricField(e *arch.Buf[fields.EField], i, j, k, comp int) {
	zeroElectric(e, i, j, k, comp)
}

func (*SetByUserCondition) HallElectricField(eHall *arch.Buf[fields.EHall], i, j, k, comp int) {
	zeroHall(eHall, i, j, k, comp)
}

func (*SetByUserCondition) GradPeElectricField(eGradPe *arch.Buf[fields.EGradPe], i, j, k, comp int) {
	zeroGradPe(eGradPe, i, j, k, comp)
}

func (*SetByUserCondition) Derivatives(dPerB *arch.Buf[fields.DPerB], dMoments *arch.Buf[fields.DMoments],
	i, j, k int, _ fields.Stage, comp int) {
	zeroDerivatives(dPerB, dMoments, i, j, k, comp)
}

func (*SetByUserCondition) BVOLDerivatives(vol *arch.Buf[fields.VolFields], i, j, k, comp int) {
	zeroBVOLDerivatives(vol, i, j, k, comp)
}
