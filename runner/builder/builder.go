package builder

import (
	"fmt"
	"sort"
	"strings"
)

// DataType represents the precision of numerical data
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

// MaxInnerSize is the largest @inner extent accepted by every OCCA backend
const MaxInnerSize = 1024

// ArraySpec describes a grid-shaped array bound into kernels. Stride is the
// number of values per cell record; zero means the array is opaque (structs).
type ArraySpec struct {
	Name     string
	Stride   int
	DataType DataType
}

// Builder generates the kernel preamble describing the local grid layout
type Builder struct {
	// Local block and halo
	LocalSize [3]int
	Halo      int

	// Type configuration
	FloatType DataType
	IntType   DataType

	// Arrays known to the preamble, by name
	Arrays map[string]ArraySpec

	// Generated code
	KernelPreamble string
}

// Config holds configuration for creating a Builder
type Config struct {
	LocalSize [3]int
	Halo      int
	FloatType DataType
	IntType   DataType
}

// NewBuilder creates a new Builder instance
func NewBuilder(cfg Config) *Builder {
	for d := 0; d < 3; d++ {
		if cfg.LocalSize[d] < 1 {
			panic(fmt.Sprintf("local size along axis %d must be positive, got %d", d, cfg.LocalSize[d]))
		}
	}
	if cfg.Halo < 0 {
		panic(fmt.Sprintf("halo width cannot be negative, got %d", cfg.Halo))
	}
	// Set defaults
	floatType := cfg.FloatType
	if floatType == 0 {
		floatType = Float64
	}
	intType := cfg.IntType
	if intType == 0 {
		intType = INT64
	}
	return &Builder{
		LocalSize: cfg.LocalSize,
		Halo:      cfg.Halo,
		FloatType: floatType,
		IntType:   intType,
		Arrays:    make(map[string]ArraySpec),
	}
}

// AddArray registers an array so the preamble emits its accessor macros
func (kb *Builder) AddArray(spec ArraySpec) {
	kb.Arrays[spec.Name] = spec
}

// StorageSize is the local block plus halo along each axis
func (kb *Builder) StorageSize() (ss [3]int) {
	for d := 0; d < 3; d++ {
		ss[d] = kb.LocalSize[d] + 2*kb.Halo
	}
	return
}

// GetTotalCells returns the number of cells including the halo
func (kb *Builder) GetTotalCells() int {
	ss := kb.StorageSize()
	return ss[0] * ss[1] * ss[2]
}

// GetIntSize returns the size of int_t in bytes
func (kb *Builder) GetIntSize() int {
	if kb.IntType == INT32 {
		return 4
	}
	return 8
}

// GeneratePreamble generates the kernel preamble with types, layout and accessors
func (kb *Builder) GeneratePreamble() string {
	var sb strings.Builder

	// 1. Type definitions and constants
	sb.WriteString(kb.generateTypeDefinitions())

	// 2. Grid layout
	sb.WriteString(kb.generateLayoutMacros())

	// 3. Cell records shared with the host
	sb.WriteString(kb.generateRecordTypes())

	// 4. Array accessors
	sb.WriteString(kb.generateArrayMacros())

	kb.KernelPreamble = sb.String()
	return kb.KernelPreamble
}

// generateTypeDefinitions creates type definitions based on precision settings
func (kb *Builder) generateTypeDefinitions() string {
	var sb strings.Builder

	floatTypeStr := "double"
	floatSuffix := ""
	realMax := "1.7976931348623157e308"
	if kb.FloatType == Float32 {
		floatTypeStr = "float"
		floatSuffix = "f"
		realMax = "3.40282347e38f"
	}

	intTypeStr := "long"
	if kb.IntType == INT32 {
		intTypeStr = "int"
	}

	sb.WriteString(fmt.Sprintf("typedef %s real_t;\n", floatTypeStr))
	sb.WriteString(fmt.Sprintf("typedef %s int_t;\n", intTypeStr))
	sb.WriteString(fmt.Sprintf("#define REAL_ZERO 0.0%s\n", floatSuffix))
	sb.WriteString(fmt.Sprintf("#define REAL_ONE 1.0%s\n", floatSuffix))
	sb.WriteString(fmt.Sprintf("#define REAL_MAX %s\n", realMax))
	sb.WriteString("\n")
	return sb.String()
}

// generateLayoutMacros emits the local extents and the storage index macro
func (kb *Builder) generateLayoutMacros() string {
	var sb strings.Builder
	ss := kb.StorageSize()
	sb.WriteString(fmt.Sprintf("#define LNX %d\n", kb.LocalSize[0]))
	sb.WriteString(fmt.Sprintf("#define LNY %d\n", kb.LocalSize[1]))
	sb.WriteString(fmt.Sprintf("#define LNZ %d\n", kb.LocalSize[2]))
	sb.WriteString(fmt.Sprintf("#define HALO %d\n", kb.Halo))
	sb.WriteString(fmt.Sprintf("#define SNX %d\n", ss[0]))
	sb.WriteString(fmt.Sprintf("#define SNY %d\n", ss[1]))
	sb.WriteString(fmt.Sprintf("#define SNZ %d\n", ss[2]))
	sb.WriteString("#define CELL(i, j, k) ((((k) + HALO) * SNY + ((j) + HALO)) * SNX + ((i) + HALO))\n")
	sb.WriteString("\n")
	return sb.String()
}

// generateRecordTypes mirrors fields.Technical, the one record that is not a
// plain array of reals
func (kb *Builder) generateRecordTypes() string {
	return `typedef struct {
  int sysBoundaryFlag;
  int sysBoundaryLayer;
  double maxFsDt;
  unsigned int solve;
  unsigned int pad;
} technical_t;

`
}

// generateArrayMacros creates NAME_AT(cell, comp) for every strided array
func (kb *Builder) generateArrayMacros() string {
	var sb strings.Builder
	names := make([]string, 0, len(kb.Arrays))
	for name := range kb.Arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	wrote := false
	for _, name := range names {
		spec := kb.Arrays[name]
		if spec.Stride < 1 {
			continue
		}
		sb.WriteString(fmt.Sprintf("#define %s_STRIDE %d\n", name, spec.Stride))
		sb.WriteString(fmt.Sprintf("#define %s_AT(cell, comp) %s[(cell) * %s_STRIDE + (comp)]\n",
			name, name, name))
		wrote = true
	}
	if wrote {
		sb.WriteString("\n")
	}
	return sb.String()
}
