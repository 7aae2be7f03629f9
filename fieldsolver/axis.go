package fieldsolver

import "github.com/notargets/FSKernel/fields"

// Axis is a cyclic permutation of the coordinate axes. P is the axis an edge
// runs along; T1 and T2 span the plane across it.
type Axis struct {
	P, T1, T2 int
}

var (
	AxisX = Axis{P: fields.X, T1: fields.Y, T2: fields.Z}
	AxisY = Axis{P: fields.Y, T1: fields.Z, T2: fields.X}
	AxisZ = Axis{P: fields.Z, T1: fields.X, T2: fields.Y}
)

var axes = [3]Axis{AxisX, AxisY, AxisZ}

// AxisOf returns the permutation whose primary axis is d
func AxisOf(d int) Axis { return axes[d] }

type cell [3]int

func (c cell) shift(d, by int) cell {
	c[d] += by
	return c
}

// corner is one of the four cells sharing an edge, shifted down by s1 along
// T1 and s2 along T2
func (a Axis) corner(c cell, s1, s2 int) cell {
	return c.shift(a.T1, -s1).shift(a.T2, -s2)
}

func sign(s int) float64 {
	if s == 0 {
		return -1
	}
	return 1
}
