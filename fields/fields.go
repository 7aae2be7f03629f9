// Package fields defines the per-cell records stored on the field-solver
// grids and the component layout inside each record.
package fields

import "math"

// Axis indices
const (
	X = 0
	Y = 1
	Z = 2
)

// Perturbed magnetic field, face centered
const (
	PerBX = iota
	PerBY
	PerBZ
	NBField
)

type BField [NBField]float64

// Electric field, edge centered
const (
	EX = iota
	EY
	EZ
	NEField
)

type EField [NEField]float64

// Background field: three components followed by the six transverse derivatives
const (
	BgBX = iota
	BgBY
	BgBZ
	NBgB = 3 + 6
)

type BgBField [NBgB]float64

// Plasma moments
const (
	RhoM = iota
	RhoQ
	VX
	VY
	VZ
	P11
	P22
	P33
	NMoments
)

type Moments [NMoments]float64

// Pe is the pseudo-moment slot used for electron pressure derivatives.
const Pe = NMoments

// NDMoments holds d(q)/d(axis) for every moment plus Pe.
const NDMoments = (NMoments + 1) * 3

type DMoments [NDMoments]float64

// DMom returns the index of d(q)/d(axis) in a DMoments record.
func DMom(q, axis int) int { return q*3 + axis }

// Perturbed B derivatives: 6 first, 6 pure second, 3 mixed
const (
	nFirst  = 6
	nSecond = 6
	nMixed  = 3
	NDPerB  = nFirst + nSecond + nMixed
)

type DPerB [NDPerB]float64

// transverseSlot maps a (component, axis) pair with comp != axis to 0..5.
func transverseSlot(comp, axis int) int {
	s := comp * 2
	if axis > comp {
		return s + axis - 1
	}
	return s + axis
}

// DPerBIdx returns the index of d(perB_comp)/d(axis).
func DPerBIdx(comp, axis int) int { return transverseSlot(comp, axis) }

// DPerB2Idx returns the index of d2(perB_comp)/d(axis)2.
func DPerB2Idx(comp, axis int) int { return nFirst + transverseSlot(comp, axis) }

// DPerBMixedIdx returns the index of the mixed derivative of perB_comp along
// the two axes orthogonal to comp.
func DPerBMixedIdx(comp int) int { return nFirst + nSecond + comp }

// BgBDerivIdx returns the index of d(BGB_comp)/d(axis).
func BgBDerivIdx(comp, axis int) int { return 3 + transverseSlot(comp, axis) }

// Hall electric field, four edges per axis. The edge is selected by the
// shifts along the two transverse axes of the cyclic permutation.
const (
	EXHall000100 = 0
	EXHall010110 = 1
	EXHall001101 = 2
	EXHall011111 = 3
	EYHall000010 = 4
	EYHall001011 = 5
	EYHall100110 = 6
	EYHall101111 = 7
	EZHall000001 = 8
	EZHall100101 = 9
	EZHall010011 = 10
	EZHall110111 = 11
	NEHall       = 12
)

type EHall [NEHall]float64

// EHallIdx returns the Hall edge component for axis with shifts s1, s2 in
// {0,1} along the first and second transverse axes.
func EHallIdx(axis, s1, s2 int) int { return axis*4 + s1 + 2*s2 }

// Electron pressure gradient electric field
const (
	EXGradPe = iota
	EYGradPe
	EZGradPe
	NEGradPe
)

type EGradPe [NEGradPe]float64

// Volume averaged fields
const (
	PerBXVol = iota
	PerBYVol
	PerBZVol
	EXVol
	EYVol
	EZVol
	NVol = 6 + 6
)

type VolFields [NVol]float64

// DPerBVolIdx returns the index of d(PERB_comp VOL)/d(axis).
func DPerBVolIdx(comp, axis int) int { return 6 + transverseSlot(comp, axis) }

// Solve bits
const (
	SolveEX uint32 = 1 << iota
	SolveEY
	SolveEZ
	SolveBX
	SolveBY
	SolveBZ
	SolveAll = SolveEX | SolveEY | SolveEZ | SolveBX | SolveBY | SolveBZ
)

// SolveE returns the solve bit of electric component comp.
func SolveE(comp int) uint32 { return SolveEX << uint(comp) }

// SolveB returns the solve bit of magnetic component comp.
func SolveB(comp int) uint32 { return SolveBX << uint(comp) }

// Technical carries the boundary classification and the CFL bound of a
// cell. The layout is mirrored by the device preamble; keep it 24 bytes.
type Technical struct {
	SysBoundaryFlag  int32
	SysBoundaryLayer int32
	MaxFsDt          float64
	Solve            uint32
	_                uint32
}

// ResetMaxFsDt sets the CFL bound back to its unconstrained value.
func (t *Technical) ResetMaxFsDt() { t.MaxFsDt = math.MaxFloat64 }

// Stage selects the time level read and written by a Runge-Kutta step
type Stage int

const (
	Order1 Stage = iota
	Order2Step1
	Order2Step2
)

func (s Stage) String() string {
	switch s {
	case Order1:
		return "RK_ORDER1"
	case Order2Step1:
		return "RK_ORDER2_STEP1"
	case Order2Step2:
		return "RK_ORDER2_STEP2"
	}
	return "RK_UNKNOWN"
}

// IsFinal reports whether the stage completes a full step
func (s Stage) IsFinal() bool { return s == Order1 || s == Order2Step2 }
