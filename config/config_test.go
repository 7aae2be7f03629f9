package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/FSKernel/fields"
	"github.com/notargets/FSKernel/fieldsolver"
	"github.com/notargets/FSKernel/sysboundary"
)

const runINI = `
[grid]
nx = 16
ny = 6
nz = 6
tasks-x = 2
periodic = y
periodic = z

[fieldsolver]
ohm-hall-term = 1
resistivity = 0.5
limiter = vanleer
diffusive-e-terms = false

[run]
dt = 0.02
subcycles = 3
executor = serial

[boundary]
x-min = outflow
x-max = setbyuser
by = 1e-9
`

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())

	p, err := Default().ToParameters()
	require.NoError(t, err)
	if diff := cmp.Diff(fieldsolver.DefaultParameters(), p); diff != "" {
		t.Errorf("default parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadString_INI(t *testing.T) {
	cfg, err := LoadString(runINI)
	require.NoError(t, err)

	want := Default()
	want.Grid.NX, want.Grid.NY, want.Grid.NZ = 16, 6, 6
	want.Grid.TasksX = 2
	want.Grid.Periodic = []string{"y", "z"}
	want.FieldSolver.OhmHallTerm = 1
	want.FieldSolver.Resistivity = 0.5
	want.FieldSolver.Limiter = "vanleer"
	want.FieldSolver.DiffusiveETerms = false
	want.Run.Dt = 0.02
	want.Run.Subcycles = 3
	want.Run.Executor = "serial"
	want.Boundary.XMinus = "outflow"
	want.Boundary.XPlus = "setbyuser"
	want.Boundary.BY = 1e-9
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	topo, err := cfg.ToTopology()
	require.NoError(t, err)
	assert.Equal(t, [3]bool{false, true, true}, topo.Periodic)
	assert.Equal(t, [3]int{2, 1, 1}, topo.Tasks)
	assert.Equal(t, 2, topo.NumRanks())

	p, err := cfg.ToParameters()
	require.NoError(t, err)
	assert.Equal(t, fieldsolver.VanLeer, p.Limiter)
	assert.False(t, p.DiffusiveETerms)

	faces, err := cfg.Faces()
	require.NoError(t, err)
	assert.Equal(t, [sysboundary.NumFaces]sysboundary.Type{sysboundary.Outflow, sysboundary.SetByUser}, faces.Types)
	assert.Equal(t, 2, faces.Thickness)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grid:
  nx: 12
  periodic: [x, y, z]
fieldsolver:
  ohm-gradpe-term: 1
  electron-temperature: 2.0e5
run:
  executor: device
  block-size: 8
problem:
  wavelengths: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	want := Default()
	want.Grid.NX = 12
	want.Grid.Periodic = []string{"x", "y", "z"}
	want.FieldSolver.OhmGradPeTerm = 1
	want.FieldSolver.ElectronTemperature = 2e5
	want.Run.Executor = "device"
	want.Run.BlockSize = 8
	want.Problem.Wavelengths = 2
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_INIFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cfg")
	require.NoError(t, os.WriteFile(path, []byte(runINI), 0o644))
	fromFile, err := Load(path)
	require.NoError(t, err)
	fromString, err := LoadString(runINI)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(fromString, fromFile))

	_, err = Load(filepath.Join(t.TempDir(), "missing.cfg"))
	assert.Error(t, err)
	_, err = Load("run.toml")
	assert.ErrorContains(t, err, "unsupported")
}

func TestLoadString_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown key", "[run]\nspeed = 1"},
		{"zero subcycles", "[run]\nsubcycles = 0"},
		{"negative dt", "[run]\ndt = -1"},
		{"unknown executor", "[run]\nexecutor = gpu"},
		{"unknown axis", "[grid]\nperiodic = w"},
		{"unknown limiter", "[fieldsolver]\nlimiter = superbee"},
		{"hall order", "[fieldsolver]\nohm-hall-term = 3"},
		{"unknown boundary", "[boundary]\nx-min = ionosphere"},
		{"boundary on periodic axis", "[grid]\nperiodic = x\n[boundary]\nx-min = outflow"},
		{"thick boundary", "[boundary]\nthickness = 4"},
		{"zero thickness", "[boundary]\nthickness = 0"},
		{"too many tasks", "[grid]\ntasks-y = 8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestConditions(t *testing.T) {
	cfg, err := LoadString(runINI)
	require.NoError(t, err)
	sb, err := cfg.Conditions()
	require.NoError(t, err)
	assert.Equal(t, []sysboundary.Type{sysboundary.DoNotCompute, sysboundary.Outflow, sysboundary.SetByUser}, sb.Types())

	sc, ok := sb.Get(int32(sysboundary.SetByUser)).(*sysboundary.SetByUserCondition)
	require.True(t, ok)
	assert.Equal(t, 2, sc.Thickness)
	for f := 0; f < sysboundary.NumFaces; f++ {
		assert.Equal(t, fields.BField{0, 1e-9, 0}, sc.Template[f])
	}

	periodic := Default()
	periodic.Grid.Periodic = []string{"x", "y", "z"}
	sb, err = periodic.Conditions()
	require.NoError(t, err)
	assert.Equal(t, []sysboundary.Type{sysboundary.DoNotCompute}, sb.Types())
}
