// Package arch dispatches per-cell loop bodies over an index space on a
// host or device executor and wraps grid storage for host/device access.
package arch

import "fmt"

// MaxDims is the largest supported range dimensionality
const MaxDims = 4

// Range is an N-dimensional index space with N in 1..4. Extent 0 is the
// innermost, fastest varying index; the last extent is the outer one that
// executors split into chunks.
type Range struct {
	ext  [MaxDims]int
	dims int
}

// NewRange builds a range from limits given innermost first.
func NewRange(limits ...int) Range {
	if len(limits) < 1 || len(limits) > MaxDims {
		panic(fmt.Sprintf("range must have 1 to %d dimensions, got %d", MaxDims, len(limits)))
	}
	r := Range{ext: [MaxDims]int{1, 1, 1, 1}, dims: len(limits)}
	for d, n := range limits {
		if n < 0 {
			panic(fmt.Sprintf("negative extent %d along dimension %d", n, d))
		}
		r.ext[d] = n
	}
	return r
}

// Range3 covers a local grid block
func Range3(size [3]int) Range { return NewRange(size[0], size[1], size[2]) }

func (r Range) Dims() int { return r.dims }
func (r Range) Extent(d int) int { return r.ext[d] }
func (r Range) Outer() int { return r.ext[r.dims-1] }

// Len is the number of index tuples
func (r Range) Len() int {
	n := 1
	for d := 0; d < r.dims; d++ {
		n *= r.ext[d]
	}
	return n
}

// InnerLen is the number of tuples per outer index
func (r Range) InnerLen() int {
	if r.Outer() == 0 {
		return 0
	}
	return r.Len() / r.Outer()
}

// Chunk is a contiguous slab [Lo, Hi) of the outer index. Index numbers the
// chunks of one partition from 0.
type Chunk struct {
	Index  int
	Lo, Hi int
}

// PartitionMap splits an outer extent into near-equal buckets
type PartitionMap struct {
	ParallelDegree int
	MaxIndex       int
}

// NewPartitionMap caps the degree at the number of indices
func NewPartitionMap(degree, maxIndex int) *PartitionMap {
	if degree < 1 {
		degree = 1
	}
	if degree > maxIndex && maxIndex > 0 {
		degree = maxIndex
	}
	return &PartitionMap{ParallelDegree: degree, MaxIndex: maxIndex}
}

// GetBucketRange returns [kMin, kMax) of bucket bn; early buckets take the
// remainder.
func (pm *PartitionMap) GetBucketRange(bn int) (kMin, kMax int) {
	base, rem := pm.MaxIndex/pm.ParallelDegree, pm.MaxIndex%pm.ParallelDegree
	kMin = bn*base + min(bn, rem)
	kMax = kMin + base
	if bn < rem {
		kMax++
	}
	return
}

// GetBucketDimension is the number of indices in bucket bn
func (pm *PartitionMap) GetBucketDimension(bn int) int {
	kMin, kMax := pm.GetBucketRange(bn)
	return kMax - kMin
}

// Chunks lists the buckets as chunks
func (pm *PartitionMap) Chunks() []Chunk {
	if pm.MaxIndex == 0 {
		return nil
	}
	out := make([]Chunk, pm.ParallelDegree)
	for bn := range out {
		lo, hi := pm.GetBucketRange(bn)
		out[bn] = Chunk{Index: bn, Lo: lo, Hi: hi}
	}
	return out
}
