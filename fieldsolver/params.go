// Package fieldsolver advances the perturbed magnetic field with the
// Londrillo-Del Zanna upwind constrained transport scheme. Face-centered B
// is updated from edge-centered E, which is built from the ideal Ohm's law
// with optional resistive, Hall and electron pressure gradient terms and
// upwinded with one-sided characteristic speeds.
package fieldsolver

import (
	"fmt"
	"math"
)

// Physical constants, SI
const (
	Mu0          = 1.25663706144e-6
	MassProton   = 1.672622e-27
	ChargeElem   = 1.602176634e-19
	BoltzmannK   = 1.380649e-23
	speedOfLight = 299792458.0
)

const (
	eps     = 1.0e-30
	half    = 0.5
	fourth  = 0.25
	sixth   = 1.0 / 6.0
	twelfth = 1.0 / 12.0
)

// Parameters configure the scheme. They are bound into a Solver once.
type Parameters struct {
	Resistivity float64
	// OhmHallTerm is the order of the Hall term, 0 disables it
	OhmHallTerm int
	// OhmGradPeTerm is the order of the electron pressure gradient term, 0
	// disables it
	OhmGradPeTerm       int
	HallMinimumRhoq     float64
	ElectronTemperature float64
	ElectronDensity     float64
	ElectronPTIndex     float64
	MaxWaveVelocity     float64
	MaxCFL              float64
	MinCFL              float64
	DiffusiveETerms     bool
	FirstOrderSpace     bool
	FirstOrderTime      bool
	Limiter             LimiterKind
	// Debug enables neighbour checks in the stencils
	Debug bool
}

// DefaultParameters match a plain second order run without the Hall and
// pressure terms
func DefaultParameters() Parameters {
	return Parameters{
		HallMinimumRhoq: ChargeElem,
		ElectronPTIndex: 1,
		MaxWaveVelocity: speedOfLight,
		MaxCFL:          0.5,
		MinCFL:          0.4,
		DiffusiveETerms: true,
		Limiter:         MC,
	}
}

func (p Parameters) Validate() error {
	switch {
	case p.Resistivity < 0:
		return fmt.Errorf("resistivity cannot be negative, got %g", p.Resistivity)
	case p.OhmHallTerm < 0 || p.OhmHallTerm > 2:
		return fmt.Errorf("Hall term order must be 0, 1 or 2, got %d", p.OhmHallTerm)
	case p.OhmGradPeTerm < 0 || p.OhmGradPeTerm > 1:
		return fmt.Errorf("grad Pe term order must be 0 or 1, got %d", p.OhmGradPeTerm)
	case !(p.MaxWaveVelocity > 0):
		return fmt.Errorf("max wave velocity must be positive, got %g", p.MaxWaveVelocity)
	case !(p.MinCFL > 0) || p.MinCFL > p.MaxCFL:
		return fmt.Errorf("CFL bounds must satisfy 0 < min <= max, got min %g max %g", p.MinCFL, p.MaxCFL)
	case (p.OhmHallTerm > 0 || p.OhmGradPeTerm > 0 || p.Resistivity > 0) && !(p.HallMinimumRhoq > 0):
		return fmt.Errorf("Hall minimum rhoq must be positive, got %g", p.HallMinimumRhoq)
	case p.Limiter != MC && p.Limiter != VanLeer:
		return fmt.Errorf("unknown limiter %d", p.Limiter)
	}
	return nil
}

// peConst is the prefactor of the polytropic electron pressure
// Pe = peConst * n^index
func (p Parameters) peConst() float64 {
	return math.Pow(p.ElectronDensity, 1-p.ElectronPTIndex) * p.ElectronTemperature * BoltzmannK
}

// rhoqFloor keeps the charge density of the Hall, grad Pe and resistive
// divisions at or above HallMinimumRhoq
func (p Parameters) rhoqFloor(rhoq float64) float64 {
	if rhoq <= p.HallMinimumRhoq {
		return p.HallMinimumRhoq
	}
	return rhoq
}

func divideIfNonZero(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
