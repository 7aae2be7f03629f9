package fsgrid

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// World is an in-process communicator: every rank of the topology runs as a
// goroutine and ranks exchange halo data by reading each other's owned cells
// between two barriers.
type World struct {
	topo Topology

	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation int
	broken     bool

	slots []float64

	gmu   sync.RWMutex
	grids map[string][]any
}

// NewWorld validates the topology and creates the communicator.
func NewWorld(topo Topology) (*World, error) {
	if topo.Stencil == 0 {
		topo.Stencil = DefaultStencil
	}
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	w := &World{
		topo:  topo,
		slots: make([]float64, topo.NumRanks()),
		grids: make(map[string][]any),
	}
	w.cond = sync.NewCond(&w.mu)
	return w, nil
}

// Topology returns the decomposition shared by all ranks.
func (w *World) Topology() Topology { return w.topo }

// Size is the number of ranks.
func (w *World) Size() int { return len(w.slots) }

// Comm returns the communicator handle of rank.
func (w *World) Comm(rank int) *Comm {
	if rank < 0 || rank >= w.Size() {
		panic(fmt.Sprintf("rank %d outside world of size %d", rank, w.Size()))
	}
	return &Comm{world: w, rank: rank}
}

// Run executes fn once per rank, concurrently, and returns the first error.
// A failing rank breaks the barrier so that its peers run to completion
// instead of waiting forever.
func (w *World) Run(fn func(c *Comm) error) error {
	var g errgroup.Group
	for r := 0; r < w.Size(); r++ {
		c := w.Comm(r)
		g.Go(func() error {
			if err := fn(c); err != nil {
				w.breakBarrier()
				return fmt.Errorf("rank %d: %w", c.rank, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *World) barrier() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken {
		return
	}
	gen := w.generation
	w.arrived++
	if w.arrived == w.Size() {
		w.arrived = 0
		w.generation++
		w.cond.Broadcast()
		return
	}
	for gen == w.generation && !w.broken {
		w.cond.Wait()
	}
}

func (w *World) breakBarrier() {
	w.mu.Lock()
	w.broken = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *World) register(name string, rank int, g any) {
	w.gmu.Lock()
	defer w.gmu.Unlock()
	peers, ok := w.grids[name]
	if !ok {
		peers = make([]any, w.Size())
		w.grids[name] = peers
	}
	peers[rank] = g
}

func (w *World) peer(name string, rank int) any {
	w.gmu.RLock()
	defer w.gmu.RUnlock()
	peers, ok := w.grids[name]
	if !ok {
		return nil
	}
	return peers[rank]
}

// Comm is one rank's view of the World.
type Comm struct {
	world *World
	rank  int
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.world.Size() }
func (c *Comm) Topology() Topology { return c.world.topo }

// Barrier blocks until every rank has reached it.
func (c *Comm) Barrier() { c.world.barrier() }

// AllreduceMin returns the minimum of v over all ranks. It is collective.
func (c *Comm) AllreduceMin(v float64) float64 {
	w := c.world
	w.mu.Lock()
	w.slots[c.rank] = v
	w.mu.Unlock()
	w.barrier()
	res := math.Inf(1)
	w.mu.Lock()
	for _, s := range w.slots {
		res = math.Min(res, s)
	}
	w.mu.Unlock()
	// slots are reused by the next reduction
	w.barrier()
	return res
}

// SingleRank builds a one-rank world and returns its communicator.
func SingleRank(topo Topology) (*Comm, error) {
	topo.Tasks = [3]int{1, 1, 1}
	w, err := NewWorld(topo)
	if err != nil {
		return nil, err
	}
	return w.Comm(0), nil
}
