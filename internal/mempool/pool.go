package mempool

import (
	"sync"
)

// Pool hands out reusable scratch slices grouped by size class. The zero value
// is ready to use.
type Pool[T any] struct {
	classes sync.Map // key: size class (int), value: *sync.Pool
}

// Shared pools for the scratch buffers used by the segmentation stages.
var (
	Int32 Pool[int32]
	Uint8 Pool[uint8]
)

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func (p *Pool[T]) pool(cls int) *sync.Pool {
	pAny, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	sp, _ := pAny.(*sync.Pool)
	return sp
}

// Get returns a zeroed slice of length n. Callers hand it back with Put.
func (p *Pool[T]) Get(n int) []T {
	if n <= 0 {
		return nil
	}
	cls := sizeClass(n)
	sp := p.pool(cls)
	if sp == nil {
		return make([]T, n)
	}
	buf, ok := sp.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// Put returns buf to the pool. Nil slices are ignored.
func (p *Pool[T]) Put(buf []T) {
	if cap(buf) == 0 {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		// foreign slice, not from Get
		return
	}
	if sp := p.pool(cls); sp != nil {
		sp.Put(buf[:cap(buf)]) //nolint:staticcheck
	}
}
