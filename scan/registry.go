package scan

import (
	"sync"

	"github.com/coregx/markspan/internal/sparse"
)

// Handle is a stable reference to a slot of the active-match slab.
type Handle uint32

// active is one in-progress attempt to satisfy a rule's template.
type active struct {
	rule   int // index into the scanner's rule snapshot
	start  int // byte offset in the output buffer where the match began
	cursor int // index of the next step to match
	gapAt  int // output offset where the gap content begins
}

// registry holds the active matches of one scan. Matches live in a slab and
// are addressed by handle; order records spawn order so the scanner can test
// the newest first.
//
// Retired handles are parked until compact, so a handle is never reused while
// order may still mention it.
type registry struct {
	slab     []active
	free     []Handle
	released []Handle
	live     *sparse.Set
	order    []Handle
}

func newRegistry(capacity int) *registry {
	return &registry{
		slab:  make([]active, 0, capacity),
		live:  sparse.NewSet(capacity),
		order: make([]Handle, 0, capacity),
	}
}

// spawn stores a and returns its handle.
func (r *registry) spawn(a active) Handle {
	var h Handle
	if n := len(r.free); n > 0 {
		h = r.free[n-1]
		r.free = r.free[:n-1]
		r.slab[h] = a
	} else {
		h = Handle(len(r.slab))
		r.slab = append(r.slab, a)
	}
	r.live.Insert(uint32(h))
	r.order = append(r.order, h)
	return h
}

func (r *registry) get(h Handle) *active {
	return &r.slab[h]
}

func (r *registry) alive(h Handle) bool {
	return r.live.Contains(uint32(h))
}

// retire ends the match behind h. Retiring twice is a no-op.
func (r *registry) retire(h Handle) {
	if !r.alive(h) {
		return
	}
	r.live.Remove(uint32(h))
	r.released = append(r.released, h)
}

// retireFrom retires every live match that started at or after pos and
// returns how many were retired.
func (r *registry) retireFrom(pos int) int {
	n := 0
	for _, h := range r.order {
		if r.alive(h) && r.slab[h].start >= pos {
			r.retire(h)
			n++
		}
	}
	return n
}

// compact drops retired handles from order and makes them reusable.
func (r *registry) compact() {
	if len(r.released) == 0 {
		return
	}
	kept := r.order[:0]
	for _, h := range r.order {
		if r.alive(h) {
			kept = append(kept, h)
		}
	}
	r.order = kept
	r.free = append(r.free, r.released...)
	r.released = r.released[:0]
}

func (r *registry) size() int {
	return r.live.Len()
}

// reset empties r for another scan.
func (r *registry) reset() {
	r.slab = r.slab[:0]
	r.free = r.free[:0]
	r.released = r.released[:0]
	r.order = r.order[:0]
	r.live.Clear()
}

// maxPooledHandles bounds the handle space of a registry kept for reuse.
const maxPooledHandles = 1 << 12

// registryPool recycles registries across scans of one Scanner.
type registryPool struct {
	pool sync.Pool
}

func newRegistryPool() *registryPool {
	p := &registryPool{}
	p.pool = sync.Pool{
		New: func() any {
			return newRegistry(8)
		},
	}
	return p
}

func (p *registryPool) get() *registry {
	return p.pool.Get().(*registry)
}

// put returns r to the pool unless a pathological input made it large.
func (p *registryPool) put(r *registry) {
	if r == nil || r.live.Cap() > maxPooledHandles {
		return
	}
	r.reset()
	p.pool.Put(r)
}
