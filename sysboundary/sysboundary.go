// Package sysboundary classifies cells at the simulation domain faces and
// supplies field values where the interior stencils cannot be applied.
package sysboundary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
	"github.com/notargets/FSKernel/fsgrid"
)

// Type identifies the boundary a cell belongs to
type Type int32

const (
	NotSysBoundary Type = iota
	DoNotCompute
	Outflow
	// SetByUser covers the inflow boundaries fed with user-prescribed
	// fields (the Maxwellian inflow family)
	SetByUser
)

var typeNames = map[Type]string{
	NotSysBoundary: "none",
	DoNotCompute:   "donotcompute",
	Outflow:        "outflow",
	SetByUser:      "setbyuser",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// ParseType accepts the names printed by String, case-insensitively, plus
// "maxwellian" as an alias of setbyuser
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "periodic" {
		return NotSysBoundary, nil
	}
	if s == "maxwellian" {
		return SetByUser, nil
	}
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown boundary type %q", s)
}

// Condition is the per-type boundary behaviour. Callbacks receive local cell
// coordinates and a component (or axis) index 0..2.
type Condition interface {
	Type() Type
	MagneticField(perB *arch.Buf[fields.BField], tech *arch.Buf[fields.Technical],
		i, j, k int, dt float64, comp int) float64
	MagneticFieldProjection(perB *arch.Buf[fields.BField], tech *arch.Buf[fields.Technical], i, j, k int)
	ElectricField(e *arch.Buf[fields.EField], i, j, k, comp int)
	HallElectricField(eHall *arch.Buf[fields.EHall], i, j, k, comp int)
	GradPeElectricField(eGradPe *arch.Buf[fields.EGradPe], i, j, k, comp int)
	Derivatives(dPerB *arch.Buf[fields.DPerB], dMoments *arch.Buf[fields.DMoments],
		i, j, k int, stage fields.Stage, comp int)
	BVOLDerivatives(vol *arch.Buf[fields.VolFields], i, j, k, comp int)
}

// SysBoundary maps boundary flags to their conditions
type SysBoundary struct {
	conds map[Type]Condition
}

// New registers conditions. DoNotCompute is always present.
func New(conds ...Condition) *SysBoundary {
	sb := &SysBoundary{conds: map[Type]Condition{DoNotCompute: DoNotComputeCondition{}}}
	for _, c := range conds {
		if c != nil {
			sb.conds[c.Type()] = c
		}
	}
	return sb
}

// Get returns the condition for a cell flag, nil if none is registered
func (sb *SysBoundary) Get(flag int32) Condition {
	return sb.conds[Type(flag)]
}

// Types lists the registered boundary types in ascending order
func (sb *SysBoundary) Types() []Type {
	out := make([]Type, 0, len(sb.conds))
	for t := range sb.conds {
		out = append(out, t)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Validate checks that every boundary flag on the technical grid, halo
// included, has a registered condition
func (sb *SysBoundary) Validate(tech *fsgrid.Grid[fields.Technical]) error {
	for n, t := range tech.Data() {
		flag := Type(t.SysBoundaryFlag)
		if flag == NotSysBoundary {
			continue
		}
		if _, ok := sb.conds[flag]; !ok {
			return fmt.Errorf("cell %d carries boundary %v with no registered condition", n, flag)
		}
	}
	return nil
}
