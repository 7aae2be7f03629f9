package fieldsolver

import (
	"fmt"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/fields"
	"github.com/notargets/FSKernel/fsgrid"
	"github.com/notargets/FSKernel/runner"
)

// Grid names, also used as device array names
const (
	NamePerB       = "perB"
	NamePerBDt2    = "perBDt2"
	NameE          = "E"
	NameEDt2       = "EDt2"
	NameEHall      = "EHall"
	NameEGradPe    = "EGradPe"
	NameMoments    = "moments"
	NameMomentsDt2 = "momentsDt2"
	NameDPerB      = "dPerB"
	NameDMoments   = "dMoments"
	NameBgB        = "BgB"
	NameVol        = "vol"
	NameTechnical  = "technical"
)

// Grids holds every field grid of one rank, wrapped for the executor
type Grids struct {
	PerB, PerBDt2       *arch.Buf[fields.BField]
	E, EDt2             *arch.Buf[fields.EField]
	EHall               *arch.Buf[fields.EHall]
	EGradPe             *arch.Buf[fields.EGradPe]
	Moments, MomentsDt2 *arch.Buf[fields.Moments]
	DPerB               *arch.Buf[fields.DPerB]
	DMoments            *arch.Buf[fields.DMoments]
	BgB                 *arch.Buf[fields.BgBField]
	Vol                 *arch.Buf[fields.VolFields]
	Technical           *arch.Buf[fields.Technical]
	comm                *fsgrid.Comm
	ex                  arch.Executor
}

func wrap[T any](ex arch.Executor, name string, comm *fsgrid.Comm, dst **arch.Buf[T], errp *error) {
	if *errp != nil {
		return
	}
	b, err := arch.NewGridBuf(ex, fsgrid.New[T](name, comm))
	if err != nil {
		*errp = err
		return
	}
	*dst = b
}

// NewGrids allocates the rank-local grids on comm. Every rank of a world
// must call it, since grids are registered by name for the halo exchange.
func NewGrids(ex arch.Executor, comm *fsgrid.Comm) (*Grids, error) {
	if comm == nil {
		return nil, fmt.Errorf("nil communicator")
	}
	g := &Grids{comm: comm, ex: ex}
	var err error
	wrap(ex, NamePerB, comm, &g.PerB, &err)
	wrap(ex, NamePerBDt2, comm, &g.PerBDt2, &err)
	wrap(ex, NameE, comm, &g.E, &err)
	wrap(ex, NameEDt2, comm, &g.EDt2, &err)
	wrap(ex, NameEHall, comm, &g.EHall, &err)
	wrap(ex, NameEGradPe, comm, &g.EGradPe, &err)
	wrap(ex, NameMoments, comm, &g.Moments, &err)
	wrap(ex, NameMomentsDt2, comm, &g.MomentsDt2, &err)
	wrap(ex, NameDPerB, comm, &g.DPerB, &err)
	wrap(ex, NameDMoments, comm, &g.DMoments, &err)
	wrap(ex, NameBgB, comm, &g.BgB, &err)
	wrap(ex, NameVol, comm, &g.Vol, &err)
	wrap(ex, NameTechnical, comm, &g.Technical, &err)
	if err != nil {
		g.Free()
		return nil, fmt.Errorf("allocating field grids: %w", err)
	}
	return g, nil
}

func (g *Grids) Comm() *fsgrid.Comm { return g.comm }

// LocalSize is the number of owned cells per axis
func (g *Grids) LocalSize() [3]int { return g.Technical.Grid().LocalSize() }

func (g *Grids) Spacing() [3]float64 { return g.Technical.Grid().Spacing() }

// SyncDevice uploads every mirrored grid as one staged copy. Call it after
// the host side initial state is written. Host executors have nothing to do.
func (g *Grids) SyncDevice() error {
	dev, ok := g.ex.(*arch.Device)
	if !ok {
		return nil
	}
	kr := dev.Runner()
	var params []*runner.ParamConfig
	for _, b := range g.all() {
		if b.OnDevice() {
			params = append(params, kr.Param(b.Name()).CopyTo())
		}
	}
	cfg, err := kr.ConfigureCopy(params...)
	if err != nil {
		return fmt.Errorf("staging field grids: %w", err)
	}
	return kr.ExecuteCopy(cfg)
}

// ExchangeState fills the halos of the externally supplied fields: B, the
// moments and the background
func (g *Grids) ExchangeState() error {
	for _, b := range []interface{ Exchange() error }{g.PerB, g.Moments, g.MomentsDt2, g.BgB} {
		if err := b.Exchange(); err != nil {
			return err
		}
	}
	return nil
}

type syncer interface {
	Name() string
	OnDevice() bool
	Free()
}

func (g *Grids) all() []syncer {
	var out []syncer
	add := func(s syncer, ok bool) {
		if ok {
			out = append(out, s)
		}
	}
	add(g.PerB, g.PerB != nil)
	add(g.PerBDt2, g.PerBDt2 != nil)
	add(g.E, g.E != nil)
	add(g.EDt2, g.EDt2 != nil)
	add(g.EHall, g.EHall != nil)
	add(g.EGradPe, g.EGradPe != nil)
	add(g.Moments, g.Moments != nil)
	add(g.MomentsDt2, g.MomentsDt2 != nil)
	add(g.DPerB, g.DPerB != nil)
	add(g.DMoments, g.DMoments != nil)
	add(g.BgB, g.BgB != nil)
	add(g.Vol, g.Vol != nil)
	add(g.Technical, g.Technical != nil)
	return out
}

// Free releases device mirrors
func (g *Grids) Free() {
	for _, b := range g.all() {
		b.Free()
	}
}
