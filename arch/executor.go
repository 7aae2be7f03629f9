package arch

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// Mirror is a device-resident copy of a host array
type Mirror interface {
	Upload() error
	Download() error
	Free()
}

// Executor maps an index space onto execution units. Partition splits the
// outer index into chunks; Run invokes fn for every chunk, possibly
// concurrently. Bodies run by an executor must not write to cells owned by
// another index tuple.
type Executor interface {
	Name() string
	Workers() int
	Partition(r Range) []Chunk
	Run(chunks []Chunk, fn func(c Chunk))
	// Mirror returns a device copy of host memory, or nil on host-only
	// executors.
	Mirror(name string, host unsafe.Pointer, bytes int64, stride int) (Mirror, error)
}

// Serial runs every range as one chunk of nested loops on the calling goroutine
type Serial struct{}

func NewSerial() *Serial { return &Serial{} }

func (*Serial) Name() string { return "serial" }
func (*Serial) Workers() int { return 1 }

func (*Serial) Partition(r Range) []Chunk {
	if r.Len() == 0 {
		return nil
	}
	return []Chunk{{Index: 0, Lo: 0, Hi: r.Outer()}}
}

func (*Serial) Run(chunks []Chunk, fn func(c Chunk)) {
	for _, c := range chunks {
		fn(c)
	}
}

func (*Serial) Mirror(string, unsafe.Pointer, int64, int) (Mirror, error) { return nil, nil }

// Threads runs buckets of the outer index on a bounded set of goroutines
type Threads struct {
	workers int
	// ChunksPerWorker oversubscribes buckets to smooth load imbalance
	ChunksPerWorker int
}

// NewThreads uses GOMAXPROCS workers when workers is not positive
func NewThreads(workers int) *Threads {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Threads{workers: workers, ChunksPerWorker: 1}
}

func (t *Threads) Name() string { return "threads" }
func (t *Threads) Workers() int { return t.workers }

func (t *Threads) Partition(r Range) []Chunk {
	if r.Len() == 0 {
		return nil
	}
	per := max(t.ChunksPerWorker, 1)
	return NewPartitionMap(t.workers*per, r.Outer()).Chunks()
}

func (t *Threads) Run(chunks []Chunk, fn func(c Chunk)) {
	launch(chunks, t.workers, fn)
}

func (*Threads) Mirror(string, unsafe.Pointer, int64, int) (Mirror, error) { return nil, nil }

// ChunkPanic carries a panic raised by a chunk body on a worker goroutine
// back to the goroutine that called Run.
type ChunkPanic struct {
	Chunk Chunk
	Value any
}

func (cp *ChunkPanic) Error() string {
	return fmt.Sprintf("chunk %d [%d,%d): %v", cp.Chunk.Index, cp.Chunk.Lo, cp.Chunk.Hi, cp.Value)
}

// launch runs the chunks on at most workers goroutines. A panicking chunk
// is re-raised on the caller as a *ChunkPanic once every chunk has finished.
func launch(chunks []Chunk, workers int, fn func(c Chunk)) {
	switch len(chunks) {
	case 0:
		return
	case 1:
		fn(chunks[0])
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, c := range chunks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &ChunkPanic{Chunk: c, Value: r}
				}
			}()
			fn(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
}
