package fieldsolver

import (
	"math"

	"go.uber.org/zap"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
)

// PropagateFields advances the fields from t to t+dt. One subcycle runs a
// single RK2 step (RK1 with FirstOrderTime); more subcycles run RK2 pairs
// whose dt is renegotiated across ranks from the CFL bound after each pair.
// The volume averages and their derivatives are refreshed at the end.
// Zero subcycles is fatal.
func (s *Solver) PropagateFields(dt float64, subcycles int, t float64) bool {
	if subcycles < 1 {
		s.log.Fatal("field solver subcycles cannot be 0", zap.Int("subcycles", subcycles))
		return false
	}
	s.resetMaxFsDt()

	// once the grad Pe term has refreshed the moment derivative halo the
	// Hall term does not repeat it
	hallCommunicate := true
	step := func(dt float64, stage fields.Stage, first bool) {
		s.PropagateMagneticField(dt, stage)
		s.CalculateDerivatives(stage, first)
		if s.P.OhmGradPeTerm > 0 && first {
			s.CalculateGradPeTerm(stage)
			hallCommunicate = false
		}
		if s.P.OhmHallTerm > 0 {
			s.CalculateHallTerm(stage, hallCommunicate)
		}
		s.CalculateUpwindedElectricField(stage)
	}

	if subcycles == 1 {
		if s.P.FirstOrderTime {
			step(dt, fields.Order1, true)
		} else {
			step(dt, fields.Order2Step1, true)
			step(dt, fields.Order2Step2, true)
		}
		s.subcycles = 1
	} else {
		s.subcycle(dt, subcycles, t, step)
	}

	s.CalculateVolumeAveragedFields()
	s.CalculateBVOLDerivatives()
	return true
}

func (s *Solver) subcycle(dt float64, subcycles int, t float64, step func(float64, fields.Stage, bool)) {
	subDt := dt / float64(subcycles)
	subT := t
	targetT := t + dt
	count := 0
	maxCount := math.MaxInt
	rank := s.g.Comm().Rank()

	for count < maxCount {
		step(subDt, fields.Order2Step1, count == 0)
		step(subDt, fields.Order2Step2, count == 0)
		subT += subDt
		count++

		if subT >= targetT || count >= maxCount {
			if subT > targetT {
				s.log.Warn("subcycle time overshoots the target",
					zap.Float64("subcycleT", subT), zap.Float64("subcycleDt", subDt),
					zap.Float64("targetT", targetT))
			}
			break
		}

		dtMax := s.g.Comm().AllreduceMin(s.localMaxFsDt())
		if subDt > dtMax*s.P.MaxCFL {
			subDt = 0.5 * (s.P.MaxCFL + s.P.MinCFL) * dtMax
			if rank == 0 {
				s.log.Info("new field solver subcycle dt",
					zap.Float64("dt", subDt), zap.Int("substep", count), zap.Float64("t", t))
			}
		}
		// snap to the target in one step, or two when one would break the
		// CFL bound, rather than leaving a tiny trailing step
		if subT+1.5*subDt > targetT {
			subDt = targetT - subT
			maxCount = count + 1
			if subDt > dtMax*s.P.MaxCFL {
				subDt = (targetT - subT) / 2
				maxCount = count + 2
			}
		}
	}

	s.subcycles = count
	if count != subcycles && rank == 0 {
		s.log.Info("effective field solver subcycles differ from requested",
			zap.Int("effective", count), zap.Int("requested", subcycles), zap.Float64("t", t))
	}
}

// Initialize computes the derivatives, the Ohm's law terms and the edge E of
// the initial state, then the volume averages. PropagateFields expects E to be
// current on entry.
func (s *Solver) Initialize() {
	s.resetMaxFsDt()
	s.CalculateDerivatives(fields.Order1, true)
	if s.P.OhmGradPeTerm > 0 {
		s.CalculateGradPeTerm(fields.Order1)
	}
	if s.P.OhmHallTerm > 0 {
		s.CalculateHallTerm(fields.Order1, s.P.OhmGradPeTerm == 0)
	}
	s.CalculateUpwindedElectricField(fields.Order1)
	s.CalculateVolumeAveragedFields()
	s.CalculateBVOLDerivatives()
}

// EffectiveSubcycles is the number of subcycles taken by the last call to
// PropagateFields
func (s *Solver) EffectiveSubcycles() int { return s.subcycles }

func (s *Solver) resetMaxFsDt() {
	if s.dev != nil {
		if err := s.dev.resetMaxFsDt(); err != nil {
			s.log.Fatal("device reset of the CFL bound failed", zap.Error(err))
		}
		return
	}
	s.forCells(func(i, j, k int) {
		s.tech(i, j, k).ResetMaxFsDt()
	})
}

// localMaxFsDt is the smallest CFL bound over the owned cells that are
// computed or in the first boundary layer
func (s *Solver) localMaxFsDt() float64 {
	if s.dev != nil {
		m, err := s.dev.localMinMaxFsDt()
		if err != nil {
			s.log.Fatal("device reduction of the CFL bound failed", zap.Error(err))
		}
		return m
	}
	acc := []float64{math.MaxFloat64}
	arch.ParallelReduce(s.ex, arch.Range3(s.g.LocalSize()), arch.Min, acc,
		func(i, j, k, _ int, acc []float64) {
			t := s.tech(i, j, k)
			if isStencilCell(t) && t.MaxFsDt < acc[0] {
				acc[0] = t.MaxFsDt
			}
		})
	return acc[0]
}

// Free releases the device resources owned by the solver. The grids stay
// with the caller.
func (s *Solver) Free() {
	if s.dev != nil {
		s.dev.free()
		s.dev = nil
	}
}
