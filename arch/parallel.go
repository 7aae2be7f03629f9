package arch

import (
	"fmt"
	"math"
)

// ReduceOp selects how partial results are combined
type ReduceOp int

const (
	Max ReduceOp = iota
	Min
	Sum
	Prod
)

func (op ReduceOp) String() string {
	switch op {
	case Max:
		return "max"
	case Min:
		return "min"
	case Sum:
		return "sum"
	case Prod:
		return "prod"
	}
	return fmt.Sprintf("ReduceOp(%d)", int(op))
}

// Number is the set of accumulator element types
type Number interface {
	float32 | float64 | int | int32 | int64
}

// Identity returns the neutral element of op for T
func Identity[T Number](op ReduceOp) T {
	switch op {
	case Sum:
		return 0
	case Prod:
		return 1
	}
	var v any
	lowest := op == Max
	var zero T
	switch any(zero).(type) {
	case float32:
		v = float32(math.Inf(1))
		if lowest {
			v = float32(math.Inf(-1))
		}
	case float64:
		v = math.Inf(1)
		if lowest {
			v = math.Inf(-1)
		}
	case int:
		v = math.MaxInt
		if lowest {
			v = math.MinInt
		}
	case int32:
		v = int32(math.MaxInt32)
		if lowest {
			v = int32(math.MinInt32)
		}
	case int64:
		v = int64(math.MaxInt64)
		if lowest {
			v = int64(math.MinInt64)
		}
	}
	return v.(T)
}

// Combine applies op to a and b
func Combine[T Number](op ReduceOp, a, b T) T {
	switch op {
	case Max:
		if b > a {
			return b
		}
		return a
	case Min:
		if b < a {
			return b
		}
		return a
	case Sum:
		return a + b
	case Prod:
		return a * b
	}
	panic(fmt.Sprintf("unknown reduction %v", op))
}

// Body is a per-cell loop body; indices beyond the range dimensionality are 0
type Body func(i, j, k, l int)

func forChunk(r Range, c Chunk, body Body) {
	e := r.ext
	switch r.dims {
	case 1:
		for i := c.Lo; i < c.Hi; i++ {
			body(i, 0, 0, 0)
		}
	case 2:
		for j := c.Lo; j < c.Hi; j++ {
			for i := 0; i < e[0]; i++ {
				body(i, j, 0, 0)
			}
		}
	case 3:
		for k := c.Lo; k < c.Hi; k++ {
			for j := 0; j < e[1]; j++ {
				for i := 0; i < e[0]; i++ {
					body(i, j, k, 0)
				}
			}
		}
	case 4:
		for l := c.Lo; l < c.Hi; l++ {
			for k := 0; k < e[2]; k++ {
				for j := 0; j < e[1]; j++ {
					for i := 0; i < e[0]; i++ {
						body(i, j, k, l)
					}
				}
			}
		}
	}
}

// ParallelFor invokes body once for every index tuple of r
func ParallelFor(ex Executor, r Range, body Body) {
	ex.Run(ex.Partition(r), func(c Chunk) { forChunk(r, c, body) })
}

// ParallelFor3 is ParallelFor over a local grid block
func ParallelFor3(ex Executor, size [3]int, body func(i, j, k int)) {
	ParallelFor(ex, Range3(size), func(i, j, k, _ int) { body(i, j, k) })
}

// ParallelReduce threads a private accumulator of len(acc) elements through
// every chunk, combines the partials in chunk order and folds the result
// into acc. The combination order depends on the partition, so floating
// point results may differ in the last bits between executors.
func ParallelReduce[T Number](ex Executor, r Range, op ReduceOp, acc []T,
	body func(i, j, k, l int, acc []T)) {
	chunks := ex.Partition(r)
	partials := make([][]T, len(chunks))
	ex.Run(chunks, func(c Chunk) {
		local := make([]T, len(acc))
		for n := range local {
			local[n] = Identity[T](op)
		}
		forChunk(r, c, func(i, j, k, l int) { body(i, j, k, l, local) })
		partials[c.Index] = local
	})
	for _, p := range partials {
		for n := range acc {
			acc[n] = Combine(op, acc[n], p[n])
		}
	}
}

// RowVisitor splits a loop body in two levels. EnterRow runs once per outer
// index and returns the context shared by every Visit of that row.
type RowVisitor[C any] interface {
	EnterRow(outer int) C
	Visit(ctx *C, i, j, k, l int)
}

// ParallelForRows runs a RowVisitor over r
func ParallelForRows[C any](ex Executor, r Range, v RowVisitor[C]) {
	ex.Run(ex.Partition(r), func(c Chunk) {
		for o := c.Lo; o < c.Hi; o++ {
			ctx := v.EnterRow(o)
			forChunk(r, Chunk{Index: c.Index, Lo: o, Hi: o + 1}, func(i, j, k, l int) {
				v.Visit(&ctx, i, j, k, l)
			})
		}
	})
}
