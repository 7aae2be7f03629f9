package arch

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func hostExecutors() []Executor {
	oversubscribed := NewThreads(3)
	oversubscribed.ChunksPerWorker = 4
	return []Executor{NewSerial(), NewThreads(1), NewThreads(4), oversubscribed}
}

// ============================================================================
// Section 1: Partitioning
// ============================================================================

func TestPartitionMap_Buckets(t *testing.T) {
	tests := []struct {
		name      string
		degree    int
		maxIndex  int
		wantSizes []int
	}{
		{"even", 4, 8, []int{2, 2, 2, 2}},
		{"remainder to low buckets", 3, 10, []int{4, 3, 3}},
		{"degree capped at index count", 8, 3, []int{1, 1, 1}},
		{"single bucket", 1, 7, []int{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewPartitionMap(tt.degree, tt.maxIndex)
			chunks := pm.Chunks()
			require.Len(t, chunks, len(tt.wantSizes))
			next := 0
			for bn, c := range chunks {
				assert.Equal(t, bn, c.Index)
				assert.Equal(t, next, c.Lo, "bucket %d must start where the previous ended", bn)
				assert.Equal(t, tt.wantSizes[bn], pm.GetBucketDimension(bn))
				next = c.Hi
			}
			assert.Equal(t, tt.maxIndex, next)
		})
	}
}

func TestRange_Shape(t *testing.T) {
	r := NewRange(3, 4, 5)
	assert.Equal(t, 3, r.Dims())
	assert.Equal(t, 5, r.Outer())
	assert.Equal(t, 60, r.Len())
	assert.Equal(t, 12, r.InnerLen())

	assert.Equal(t, 0, NewRange(4, 0).Len())
	assert.Equal(t, 0, NewRange(4, 0).InnerLen())

	assert.Panics(t, func() { NewRange() })
	assert.Panics(t, func() { NewRange(1, 2, 3, 4, 5) })
	assert.Panics(t, func() { NewRange(2, -1) })
}

// ============================================================================
// Section 2: ParallelFor
// ============================================================================

// Test 2.1: every executor fills a 100^3 block exactly like the serial loop
func TestParallelFor_FillMatchesSerial(t *testing.T) {
	const n = 100
	idx := func(i, j, k int) int { return i + n*(j+n*k) }

	want := make([]float64, n*n*n)
	ParallelFor(NewSerial(), NewRange(n, n, n), func(i, j, k, _ int) {
		want[idx(i, j, k)] = 2
	})
	require.Equal(t, 2.0, want[idx(10, 10, 10)])

	for _, ex := range hostExecutors()[1:] {
		t.Run(ex.Name(), func(t *testing.T) {
			got := make([]float64, n*n*n)
			ParallelFor(ex, NewRange(n, n, n), func(i, j, k, _ int) {
				got[idx(i, j, k)] += 2
			})
			assert.Equal(t, 2.0, got[idx(10, 10, 10)])
			for c := range got {
				if got[c] != want[c] {
					t.Fatalf("cell %d: got %g, want %g", c, got[c], want[c])
				}
			}
		})
	}
}

// Test 2.2: each index tuple is visited exactly once for 1 to 4 dimensions
func TestParallelFor_VisitsOnce(t *testing.T) {
	ranges := []Range{
		NewRange(17),
		NewRange(5, 9),
		NewRange(3, 4, 11),
		NewRange(2, 3, 4, 5),
	}
	for _, ex := range hostExecutors() {
		for _, r := range ranges {
			visits := make([]int32, r.Len())
			ParallelFor(ex, r, func(i, j, k, l int) {
				n := i + r.Extent(0)*(j+r.Extent(1)*(k+r.Extent(2)*l))
				atomic.AddInt32(&visits[n], 1)
			})
			for n, v := range visits {
				if v != 1 {
					t.Fatalf("%s, %d dims: tuple %d visited %d times", ex.Name(), r.Dims(), n, v)
				}
			}
		}
	}
}

func TestParallelFor_EmptyRange(t *testing.T) {
	for _, ex := range hostExecutors() {
		called := false
		ParallelFor(ex, NewRange(4, 0, 3), func(i, j, k, l int) { called = true })
		assert.False(t, called, ex.Name())
	}
}

// a panicking body on a worker goroutine surfaces on the caller after the
// other chunks have run
func TestThreads_RunPropagatesChunkPanic(t *testing.T) {
	ex := NewThreads(4)
	chunks := ex.Partition(NewRange(8))
	require.Len(t, chunks, 4)

	var ran atomic.Int32
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		ex.Run(chunks, func(c Chunk) {
			ran.Add(1)
			if c.Index == 2 {
				panic("bad cell")
			}
		})
	}()

	require.NotNil(t, recovered)
	cp, ok := recovered.(*ChunkPanic)
	require.True(t, ok, "got %T", recovered)
	assert.Equal(t, 2, cp.Chunk.Index)
	assert.Equal(t, "bad cell", cp.Value)
	assert.ErrorContains(t, cp, "bad cell")
	assert.EqualValues(t, 4, ran.Load())

	assert.NotPanics(t, func() { ex.Run(chunks, func(Chunk) {}) })
}

// ============================================================================
// Section 3: ParallelReduce
// ============================================================================

// Test 3.1: results do not depend on how the outer index is chunked
func TestParallelReduce_ChunkingIndependent(t *testing.T) {
	r := NewRange(7, 6, 13)
	value := func(i, j, k int) int { return (i*31+j*17+k*7)%23 - 11 }

	for _, ex := range hostExecutors() {
		t.Run(ex.Name(), func(t *testing.T) {
			sum := []int{0}
			ParallelReduce(ex, r, Sum, sum, func(i, j, k, _ int, acc []int) {
				acc[0] += value(i, j, k)
			})
			minMax := []int{math.MaxInt}
			ParallelReduce(ex, r, Min, minMax, func(i, j, k, _ int, acc []int) {
				acc[0] = min(acc[0], value(i, j, k))
			})
			maxv := []int{math.MinInt}
			ParallelReduce(ex, r, Max, maxv, func(i, j, k, _ int, acc []int) {
				acc[0] = max(acc[0], value(i, j, k))
			})

			wantSum, wantMin, wantMax := 0, math.MaxInt, math.MinInt
			ParallelFor(NewSerial(), r, func(i, j, k, _ int) {
				v := value(i, j, k)
				wantSum += v
				wantMin = min(wantMin, v)
				wantMax = max(wantMax, v)
			})
			assert.Equal(t, wantSum, sum[0])
			assert.Equal(t, wantMin, minMax[0])
			assert.Equal(t, wantMax, maxv[0])
		})
	}
}

// Test 3.2: the accumulator arity follows len(acc) and folds into the
// caller's starting values
func TestParallelReduce_MultiComponent(t *testing.T) {
	r := NewRange(10, 10)
	acc := []float64{1, 2}
	ParallelReduce(NewThreads(3), r, Sum, acc, func(i, j, _, _ int, acc []float64) {
		acc[0] += 1
		acc[1] += float64(i)
	})
	assert.InDelta(t, 101, acc[0], 1e-12)
	assert.InDelta(t, 2+10*45, acc[1], 1e-12)
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, math.Inf(1), Identity[float64](Min))
	assert.Equal(t, math.Inf(-1), Identity[float64](Max))
	assert.Equal(t, 0.0, Identity[float64](Sum))
	assert.Equal(t, 1.0, Identity[float64](Prod))
	assert.Equal(t, math.MaxInt, Identity[int](Min))
	assert.Equal(t, int32(math.MinInt32), Identity[int32](Max))
	assert.Equal(t, "prod", Prod.String())
}

// ============================================================================
// Section 4: ParallelForRows
// ============================================================================

type rowSums struct {
	entered []int32
	sums    []int
}

func (rs *rowSums) EnterRow(outer int) int {
	atomic.AddInt32(&rs.entered[outer], 1)
	return outer
}

func (rs *rowSums) Visit(ctx *int, i, j, k, _ int) {
	if *ctx != k {
		panic("row context does not match the outer index")
	}
	rs.sums[k] += i + j
}

func TestParallelForRows(t *testing.T) {
	r := NewRange(4, 3, 9)
	for _, ex := range hostExecutors() {
		rs := &rowSums{entered: make([]int32, 9), sums: make([]int, 9)}
		ParallelForRows[int](ex, r, rs)
		for k := 0; k < 9; k++ {
			assert.EqualValues(t, 1, rs.entered[k], "%s: row %d", ex.Name(), k)
			// sum over i<4, j<3 of i+j = 3*6 + 4*3
			assert.Equal(t, 30, rs.sums[k], "%s: row %d", ex.Name(), k)
		}
	}
}
