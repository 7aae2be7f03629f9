// Package config loads field solver runs from INI (gcfg) or YAML files.
//
// An INI run file looks like
//
//	[grid]
//	nx = 64
//	ny = 8
//	nz = 8
//	dx = 1e5
//	periodic = x
//	periodic = y
//
//	[fieldsolver]
//	max-cfl = 0.5
//	min-cfl = 0.4
//	ohm-hall-term = 2
//
//	[boundary]
//	z-min = outflow
//	z-max = outflow
//
// and the YAML form uses the same section and key names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"

	"github.com/notargets/FSKernel/fields"
	"github.com/notargets/FSKernel/fieldsolver"
	"github.com/notargets/FSKernel/fsgrid"
	"github.com/notargets/FSKernel/sysboundary"
)

type Grid struct {
	NX       int      `gcfg:"nx" yaml:"nx"`
	NY       int      `gcfg:"ny" yaml:"ny"`
	NZ       int      `gcfg:"nz" yaml:"nz"`
	DX       float64  `gcfg:"dx" yaml:"dx"`
	DY       float64  `gcfg:"dy" yaml:"dy"`
	DZ       float64  `gcfg:"dz" yaml:"dz"`
	TasksX   int      `gcfg:"tasks-x" yaml:"tasks-x"`
	TasksY   int      `gcfg:"tasks-y" yaml:"tasks-y"`
	TasksZ   int      `gcfg:"tasks-z" yaml:"tasks-z"`
	Periodic []string `gcfg:"periodic" yaml:"periodic"`
}

type FieldSolver struct {
	Resistivity         float64 `gcfg:"resistivity" yaml:"resistivity"`
	OhmHallTerm         int     `gcfg:"ohm-hall-term" yaml:"ohm-hall-term"`
	OhmGradPeTerm       int     `gcfg:"ohm-gradpe-term" yaml:"ohm-gradpe-term"`
	HallMinimumRhoq     float64 `gcfg:"hall-minimum-rhoq" yaml:"hall-minimum-rhoq"`
	ElectronTemperature float64 `gcfg:"electron-temperature" yaml:"electron-temperature"`
	ElectronDensity     float64 `gcfg:"electron-density" yaml:"electron-density"`
	ElectronPTIndex     float64 `gcfg:"electron-pt-index" yaml:"electron-pt-index"`
	MaxWaveVelocity     float64 `gcfg:"max-wave-velocity" yaml:"max-wave-velocity"`
	MaxCFL              float64 `gcfg:"max-cfl" yaml:"max-cfl"`
	MinCFL              float64 `gcfg:"min-cfl" yaml:"min-cfl"`
	DiffusiveETerms     bool    `gcfg:"diffusive-e-terms" yaml:"diffusive-e-terms"`
	FirstOrderSpace     bool    `gcfg:"first-order-space" yaml:"first-order-space"`
	FirstOrderTime      bool    `gcfg:"first-order-time" yaml:"first-order-time"`
	Limiter             string  `gcfg:"limiter" yaml:"limiter"`
	Debug               bool    `gcfg:"debug" yaml:"debug"`
}

type Run struct {
	Dt        float64 `gcfg:"dt" yaml:"dt"`
	Steps     int     `gcfg:"steps" yaml:"steps"`
	Subcycles int     `gcfg:"subcycles" yaml:"subcycles"`
	Executor  string  `gcfg:"executor" yaml:"executor"`
	Workers   int     `gcfg:"workers" yaml:"workers"`
	Device    string  `gcfg:"device" yaml:"device"`
	BlockSize int     `gcfg:"block-size" yaml:"block-size"`
}

// Problem sets up the plasma and field the example runs start from
type Problem struct {
	Density     float64 `gcfg:"density" yaml:"density"`
	Temperature float64 `gcfg:"temperature" yaml:"temperature"`
	B0          float64 `gcfg:"b0" yaml:"b0"`
	Amplitude   float64 `gcfg:"amplitude" yaml:"amplitude"`
	Wavelengths int     `gcfg:"wavelengths" yaml:"wavelengths"`
}

// Boundary names the type of each non-periodic face. SetByUser faces hold
// the perturbed field given by bx, by, bz.
type Boundary struct {
	XMinus    string  `gcfg:"x-min" yaml:"x-min"`
	XPlus     string  `gcfg:"x-max" yaml:"x-max"`
	YMinus    string  `gcfg:"y-min" yaml:"y-min"`
	YPlus     string  `gcfg:"y-max" yaml:"y-max"`
	ZMinus    string  `gcfg:"z-min" yaml:"z-min"`
	ZPlus     string  `gcfg:"z-max" yaml:"z-max"`
	Thickness int     `gcfg:"thickness" yaml:"thickness"`
	BX        float64 `gcfg:"bx" yaml:"bx"`
	BY        float64 `gcfg:"by" yaml:"by"`
	BZ        float64 `gcfg:"bz" yaml:"bz"`
}

type Config struct {
	Grid        Grid        `gcfg:"grid" yaml:"grid"`
	FieldSolver FieldSolver `gcfg:"fieldsolver" yaml:"fieldsolver"`
	Run         Run         `gcfg:"run" yaml:"run"`
	Problem     Problem     `gcfg:"problem" yaml:"problem"`
	Boundary    Boundary    `gcfg:"boundary" yaml:"boundary"`
}

// Default returns a small box with the solver defaults. No axis is periodic
// and no face carries a boundary type.
func Default() Config {
	p := fieldsolver.DefaultParameters()
	return Config{
		Grid: Grid{
			NX: 32, NY: 8, NZ: 8,
			DX: 1e5, DY: 1e5, DZ: 1e5,
			TasksX: 1, TasksY: 1, TasksZ: 1,
		},
		FieldSolver: FieldSolver{
			Resistivity:         p.Resistivity,
			OhmHallTerm:         p.OhmHallTerm,
			OhmGradPeTerm:       p.OhmGradPeTerm,
			HallMinimumRhoq:     p.HallMinimumRhoq,
			ElectronTemperature: p.ElectronTemperature,
			ElectronDensity:     p.ElectronDensity,
			ElectronPTIndex:     p.ElectronPTIndex,
			MaxWaveVelocity:     p.MaxWaveVelocity,
			MaxCFL:              p.MaxCFL,
			MinCFL:              p.MinCFL,
			DiffusiveETerms:     p.DiffusiveETerms,
			FirstOrderSpace:     p.FirstOrderSpace,
			FirstOrderTime:      p.FirstOrderTime,
			Limiter:             p.Limiter.String(),
		},
		Run: Run{
			Dt:        0.01,
			Steps:     10,
			Subcycles: 1,
			Executor:  "threads",
			Device:    "Serial",
			BlockSize: 4,
		},
		Problem: Problem{
			Density:     1e6,
			Temperature: 1e5,
			B0:          1e-9,
			Amplitude:   1e-11,
			Wavelengths: 1,
		},
		Boundary: Boundary{Thickness: 2},
	}
}

// Load reads a run file over the defaults. The format follows the extension:
// .cfg, .ini and .conf are INI, .yaml and .yml are YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cfg", ".ini", ".conf":
		if err := gcfg.ReadFileInto(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if err = yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, cfg.Validate()
}

// LoadString parses INI text over the defaults
func LoadString(text string) (Config, error) {
	cfg := Default()
	if err := gcfg.ReadStringInto(&cfg, text); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	topo, err := c.ToTopology()
	if err != nil {
		return err
	}
	if err = topo.Validate(); err != nil {
		return err
	}
	p, err := c.ToParameters()
	if err != nil {
		return err
	}
	if err = p.Validate(); err != nil {
		return err
	}
	if _, err = c.Faces(); err != nil {
		return err
	}
	if c.Run.Subcycles < 1 {
		return fmt.Errorf("run: subcycles must be at least 1, got %d", c.Run.Subcycles)
	}
	if c.Run.Dt <= 0 {
		return fmt.Errorf("run: dt must be positive, got %g", c.Run.Dt)
	}
	switch strings.ToLower(c.Run.Executor) {
	case "serial", "threads", "device":
	default:
		return fmt.Errorf("run: unknown executor %q", c.Run.Executor)
	}
	return nil
}

// ToTopology builds the grid topology. Periodic entries are axis names.
func (c Config) ToTopology() (fsgrid.Topology, error) {
	topo := fsgrid.Topology{
		GlobalSize: [3]int{c.Grid.NX, c.Grid.NY, c.Grid.NZ},
		Tasks:      [3]int{c.Grid.TasksX, c.Grid.TasksY, c.Grid.TasksZ},
		Spacing:    [3]float64{c.Grid.DX, c.Grid.DY, c.Grid.DZ},
		Stencil:    fsgrid.DefaultStencil,
	}
	for _, name := range c.Grid.Periodic {
		d, err := axisIndex(name)
		if err != nil {
			return fsgrid.Topology{}, fmt.Errorf("grid: periodic: %w", err)
		}
		topo.Periodic[d] = true
	}
	return topo, nil
}

func axisIndex(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x":
		return fields.X, nil
	case "y":
		return fields.Y, nil
	case "z":
		return fields.Z, nil
	}
	return 0, fmt.Errorf("unknown axis %q", name)
}

func (c Config) ToParameters() (fieldsolver.Parameters, error) {
	fs := c.FieldSolver
	lim, err := fieldsolver.ParseLimiter(fs.Limiter)
	if err != nil {
		return fieldsolver.Parameters{}, fmt.Errorf("fieldsolver: %w", err)
	}
	return fieldsolver.Parameters{
		Resistivity:         fs.Resistivity,
		OhmHallTerm:         fs.OhmHallTerm,
		OhmGradPeTerm:       fs.OhmGradPeTerm,
		HallMinimumRhoq:     fs.HallMinimumRhoq,
		ElectronTemperature: fs.ElectronTemperature,
		ElectronDensity:     fs.ElectronDensity,
		ElectronPTIndex:     fs.ElectronPTIndex,
		MaxWaveVelocity:     fs.MaxWaveVelocity,
		MaxCFL:              fs.MaxCFL,
		MinCFL:              fs.MinCFL,
		DiffusiveETerms:     fs.DiffusiveETerms,
		FirstOrderSpace:     fs.FirstOrderSpace,
		FirstOrderTime:      fs.FirstOrderTime,
		Limiter:             lim,
		Debug:               fs.Debug,
	}, nil
}

// Faces resolves the boundary section. Faces on periodic axes must be left
// empty.
func (c Config) Faces() (sysboundary.Faces, error) {
	b := c.Boundary
	names := [sysboundary.NumFaces]string{b.XMinus, b.XPlus, b.YMinus, b.YPlus, b.ZMinus, b.ZPlus}
	topo, err := c.ToTopology()
	if err != nil {
		return sysboundary.Faces{}, err
	}
	faces := sysboundary.Faces{Thickness: b.Thickness}
	if faces.Thickness < 1 {
		return faces, fmt.Errorf("boundary: thickness must be at least 1, got %d", b.Thickness)
	}
	for d := 0; d < 3; d++ {
		if !topo.Periodic[d] && 2*faces.Thickness >= topo.GlobalSize[d] {
			return faces, fmt.Errorf("boundary: thickness %d leaves no computed cells along axis %d of %d",
				faces.Thickness, d, topo.GlobalSize[d])
		}
	}
	for f, name := range names {
		t, err := sysboundary.ParseType(name)
		if err != nil {
			return faces, fmt.Errorf("boundary: face %d: %w", f, err)
		}
		if t != sysboundary.NotSysBoundary && topo.Periodic[f/2] {
			return faces, fmt.Errorf("boundary: face %d is on periodic axis %d", f, f/2)
		}
		faces.Types[f] = t
	}
	return faces, nil
}

// Conditions builds the registry for the configured face types
func (c Config) Conditions() (*sysboundary.SysBoundary, error) {
	faces, err := c.Faces()
	if err != nil {
		return nil, err
	}
	var conds []sysboundary.Condition
	seen := map[sysboundary.Type]bool{}
	for _, t := range faces.Types {
		if seen[t] {
			continue
		}
		seen[t] = true
		switch t {
		case sysboundary.Outflow:
			conds = append(conds, sysboundary.NewOutflow(fsgrid.DefaultStencil))
		case sysboundary.SetByUser:
			var tmpl [sysboundary.NumFaces]fields.BField
			for f := range tmpl {
				tmpl[f] = fields.BField{c.Boundary.BX, c.Boundary.BY, c.Boundary.BZ}
			}
			conds = append(conds, sysboundary.NewSetByUser(tmpl, faces.Thickness))
		}
	}
	return sysboundary.New(conds...), nil
}
