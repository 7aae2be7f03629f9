// runner/types.go
package runner

import (
	"github.com/notargets/FSKernel/runner/builder"
)

// SizeOfType returns the size in bytes of a data type
func SizeOfType(dt builder.DataType) int64 {
	switch dt {
	case builder.Float32, builder.INT32:
		return 4
	case builder.Float64, builder.INT64:
		return 8
	default:
		return 8
	}
}

// IntArg converts an integer scalar to the width of int_t
func (kr *Runner) IntArg(v int) interface{} {
	if kr.IntType == builder.INT32 {
		return int32(v)
	}
	return int64(v)
}

// RealArg converts a real scalar to the width of real_t
func (kr *Runner) RealArg(v float64) interface{} {
	if kr.FloatType == builder.Float32 {
		return float32(v)
	}
	return v
}
