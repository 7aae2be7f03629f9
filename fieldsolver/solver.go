package fieldsolver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
	"github.com/notargets/FSKernel/sysboundary"
)

// Solver binds the parameters, the executor, the boundary conditions and the
// grids of one rank. Every stage function is collective across the ranks of
// the grids' world.
type Solver struct {
	P         Parameters
	ex        arch.Executor
	g         *Grids
	sb        *sysboundary.SysBoundary
	log       *zap.Logger
	limiter   Limiter
	peConst   float64
	d         [3]float64
	dev       *deviceKernels
	subcycles int
}

// NewSolver validates the setup. A nil logger is replaced by a no-op one.
// On a Device executor the device kernels are compiled here.
func NewSolver(p Parameters, ex arch.Executor, g *Grids, sb *sysboundary.SysBoundary,
	log *zap.Logger) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if ex == nil || g == nil || sb == nil {
		return nil, fmt.Errorf("executor, grids and boundaries are required")
	}
	if err := sb.Validate(g.Technical.Grid()); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Solver{
		P:       p,
		ex:      ex,
		g:       g,
		sb:      sb,
		log:     log.With(zap.Int("rank", g.Comm().Rank())),
		limiter: p.Limiter.Func(),
		peConst: p.peConst(),
		d:       g.Spacing(),
	}
	if dev, ok := ex.(*arch.Device); ok {
		dk, err := newDeviceKernels(dev, g)
		if err != nil {
			return nil, err
		}
		s.dev = dk
	}
	return s, nil
}

func (s *Solver) Grids() *Grids { return s.g }
func (s *Solver) Executor() arch.Executor { return s.ex }
func (s *Solver) Logger() *zap.Logger { return s.log }

// forCells runs body over the owned cells
func (s *Solver) forCells(body func(i, j, k int)) {
	arch.ParallelFor3(s.ex, s.g.LocalSize(), body)
}

func (s *Solver) tech(i, j, k int) *fields.Technical { return s.g.Technical.Get(i, j, k) }

// condition returns the boundary behaviour of a flagged cell
func (s *Solver) condition(t *fields.Technical) sysboundary.Condition {
	return s.sb.Get(t.SysBoundaryFlag)
}

func isInterior(t *fields.Technical) bool {
	return sysboundary.Type(t.SysBoundaryFlag) == sysboundary.NotSysBoundary
}

func isSkipped(t *fields.Technical) bool {
	return sysboundary.Type(t.SysBoundaryFlag) == sysboundary.DoNotCompute
}

// isStencilCell reports whether the interior stencils apply: computed cells
// and the first boundary layer
func isStencilCell(t *fields.Technical) bool {
	return isInterior(t) || t.SysBoundaryLayer == 1
}

// checkNeighbours aborts when a stencil would leave the halo
func (s *Solver) checkNeighbours(where string, cs ...cell) {
	for _, c := range cs {
		if s.tech(c[0], c[1], c[2]) == nil {
			s.log.Fatal("missing technical neighbour",
				zap.String("stencil", where), zap.Ints("cell", c[:]))
		}
	}
}

// exchange runs the halo exchange of several buffers in order and logs any
// staging failure as fatal, since ranks cannot continue out of step
func (s *Solver) exchange(bufs ...interface{ Exchange() error }) {
	for _, b := range bufs {
		if err := b.Exchange(); err != nil {
			s.log.Fatal("halo exchange failed", zap.Error(err))
		}
	}
}

// stageB selects the magnetic field read by a stage
func (s *Solver) stageB(stage fields.Stage) *arch.Buf[fields.BField] {
	if stage == fields.Order2Step1 {
		return s.g.PerBDt2
	}
	return s.g.PerB
}

func (s *Solver) stageMoments(stage fields.Stage) *arch.Buf[fields.Moments] {
	if stage == fields.Order2Step1 {
		return s.g.MomentsDt2
	}
	return s.g.Moments
}

func (s *Solver) stageE(stage fields.Stage) *arch.Buf[fields.EField] {
	if stage == fields.Order2Step1 {
		return s.g.EDt2
	}
	return s.g.E
}
