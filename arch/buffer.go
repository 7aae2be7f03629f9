package arch

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/notargets/FSKernel/fsgrid"
)

// Buf is a view over a grid or a flat array that hides whether the data also
// lives on a device. The host copy is authoritative for loop bodies; callers
// stage data with SyncDeviceData before a device kernel and SyncHostData
// after it. Copies made with Copy alias the same storage and never release
// the device mirror.
type Buf[T any] struct {
	name   string
	grid   *fsgrid.Grid[T]
	flat   []T
	mirror Mirror
	isCopy bool
}

// RecordStride is the number of float64 values per record, or 0 when T is
// not a float64 array.
func RecordStride[T any]() int {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Float64 {
		return t.Len()
	}
	if t.Kind() == reflect.Float64 {
		return 1
	}
	return 0
}

// NewGridBuf wraps a grid, mirroring it on device executors
func NewGridBuf[T any](ex Executor, g *fsgrid.Grid[T]) (*Buf[T], error) {
	if g == nil {
		return nil, fmt.Errorf("nil grid")
	}
	b := &Buf[T]{name: g.Name(), grid: g}
	data := g.Data()
	m, err := ex.Mirror(g.Name(), unsafe.Pointer(&data[0]), g.Bytes(), RecordStride[T]())
	if err != nil {
		return nil, fmt.Errorf("buffer %s: %w", g.Name(), err)
	}
	b.mirror = m
	return b, nil
}

// NewFlatBuf wraps a flat slice
func NewFlatBuf[T any](ex Executor, name string, data []T) (*Buf[T], error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("buffer %s: empty data", name)
	}
	var zero T
	bytes := int64(len(data)) * int64(unsafe.Sizeof(zero))
	m, err := ex.Mirror(name, unsafe.Pointer(&data[0]), bytes, RecordStride[T]())
	if err != nil {
		return nil, fmt.Errorf("buffer %s: %w", name, err)
	}
	return &Buf[T]{name: name, flat: data, mirror: m}, nil
}

// MustGridBuf panics where NewGridBuf would fail
func MustGridBuf[T any](ex Executor, g *fsgrid.Grid[T]) *Buf[T] {
	b, err := NewGridBuf(ex, g)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Buf[T]) Name() string { return b.name }

// Grid returns the wrapped grid, nil for flat buffers
func (b *Buf[T]) Grid() *fsgrid.Grid[T] { return b.grid }

// Get returns the record at local grid coordinates, nil beyond the halo
func (b *Buf[T]) Get(i, j, k int) *T { return b.grid.Get(i, j, k) }

// At returns record n of the backing store
func (b *Buf[T]) At(n int) *T {
	if b.grid != nil {
		return &b.grid.Data()[n]
	}
	return &b.flat[n]
}

// Len is the number of records in the backing store
func (b *Buf[T]) Len() int {
	if b.grid != nil {
		return len(b.grid.Data())
	}
	return len(b.flat)
}

// OnDevice reports whether the buffer has a device mirror
func (b *Buf[T]) OnDevice() bool { return b.mirror != nil }

// SyncHostData refreshes the host copy from the device; no-op on host
func (b *Buf[T]) SyncHostData() error {
	if b.mirror == nil {
		return nil
	}
	return b.mirror.Download()
}

// SyncDeviceData refreshes the device copy from the host; no-op on host
func (b *Buf[T]) SyncDeviceData() error {
	if b.mirror == nil {
		return nil
	}
	return b.mirror.Upload()
}

// UpdateGhostCells exchanges the halo of the wrapped grid
func (b *Buf[T]) UpdateGhostCells() {
	b.grid.UpdateGhostCells()
}

// Exchange updates the halo of the host copy, which loop bodies write, and
// then refreshes the device copy
func (b *Buf[T]) Exchange() error {
	b.grid.UpdateGhostCells()
	return b.SyncDeviceData()
}

// Copy returns an alias of b
func (b *Buf[T]) Copy() *Buf[T] {
	c := *b
	c.isCopy = true
	return &c
}

// IsCopy reports whether b is an alias made by Copy
func (b *Buf[T]) IsCopy() bool { return b.isCopy }

// Free releases the device mirror. Aliases never free.
func (b *Buf[T]) Free() {
	if b.isCopy || b.mirror == nil {
		return
	}
	b.mirror.Free()
	b.mirror = nil
}
