// Package pool implements the named object pool: shared ownership of
// named entries keyed by string, weak-reference handout via Lookup and
// Search, and "destroyed" signaling when an entry is replaced or the pool
// reclaims it through ClearUnlocked.
package pool

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"weak"
)

// entry is one pool slot. refs is an explicit strong-reference count for
// ClearUnlocked: the weak package reports only whether the GC has
// collected a value, not how many strong holders remain, so Handle and
// Release maintain the count by hand.
type entry[T any] struct {
	mu        sync.Mutex
	value     *T
	refs      int32
	destroyed bool
}

func (e *entry[T]) markDestroyed() {
	e.mu.Lock()
	e.destroyed = true
	e.mu.Unlock()
}

func (e *entry[T]) isDestroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// Handle is strong ownership of a pool slot's value, returned by Assign,
// Create, and a successful Weak.Lock. Holding a Handle increments the
// entry's reference count.
type Handle[T any] struct {
	e *entry[T]
}

// Value returns the held value. The zero Handle's Value is nil.
func (h Handle[T]) Value() *T {
	if h.e == nil {
		return nil
	}
	return h.e.value
}

// Destroyed reports whether the pool has since replaced or reclaimed the
// slot this handle was issued from, even though the handle itself still
// keeps the value reachable.
func (h Handle[T]) Destroyed() bool {
	if h.e == nil {
		return true
	}
	return h.e.isDestroyed()
}

// Release drops this handle's strong reference. Callers that keep a Handle
// across more than one operation should Release it when done, so
// ClearUnlocked can recognize the pool as the slot's sole remaining owner.
func (h Handle[T]) Release() {
	if h.e == nil {
		return
	}
	atomic.AddInt32(&h.e.refs, -1)
}

func newHandle[T any](e *entry[T]) Handle[T] {
	atomic.AddInt32(&e.refs, 1)
	return Handle[T]{e: e}
}

// Weak is a non-owning reference to a pool slot, produced by Lookup and
// Search. Lock resolves it to a strong Handle, re-resolving by name from
// the owning pool if the originally observed entry has been collected or
// flagged destroyed.
type Weak[T any] struct {
	name string
	ptr  weak.Pointer[entry[T]]
	pool *Pool[T]
}

// Lock resolves the weak reference to a strong Handle. ok is false when the
// name no longer resolves to any live entry in the pool.
func (w Weak[T]) Lock() (Handle[T], bool) {
	if e := w.ptr.Value(); e != nil && !e.isDestroyed() {
		return newHandle(e), true
	}
	if w.pool == nil {
		return Handle[T]{}, false
	}
	fresh, ok := w.pool.Lookup(w.name)
	if !ok {
		return Handle[T]{}, false
	}
	e := fresh.ptr.Value()
	if e == nil || e.isDestroyed() {
		return Handle[T]{}, false
	}
	return newHandle(e), true
}

// Pool is a string-keyed map of shared entries with an ordered name index
// backing Search's prefix scan.
type Pool[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
	names   []string // kept sorted for Search's prefix range scan
}

// New creates an empty Pool.
func New[T any]() *Pool[T] {
	return &Pool[T]{entries: map[string]*entry[T]{}}
}

// Assign replaces or inserts the entry named name. Any prior occupant is
// flagged destroyed first, so outside Weak/NamedRef holders notice on their
// next Lock.
func (p *Pool[T]) Assign(name string, v *T) Handle[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.entries[name]; ok {
		old.markDestroyed()
	} else {
		p.insertName(name)
	}
	e := &entry[T]{value: v}
	p.entries[name] = e
	return newHandle(e)
}

func (p *Pool[T]) insertName(name string) {
	i := sort.SearchStrings(p.names, name)
	p.names = append(p.names, "")
	copy(p.names[i+1:], p.names[i:])
	p.names[i] = name
}

func (p *Pool[T]) removeName(name string) {
	i := sort.SearchStrings(p.names, name)
	if i < len(p.names) && p.names[i] == name {
		p.names = append(p.names[:i], p.names[i+1:]...)
	}
}

// Lookup returns a weak handle to the named entry. ok is false when name
// is absent; the returned zero Weak's Lock always fails.
func (p *Pool[T]) Lookup(name string) (Weak[T], bool) {
	p.mu.RLock()
	e, ok := p.entries[name]
	p.mu.RUnlock()
	if !ok {
		return Weak[T]{}, false
	}
	return Weak[T]{name: name, ptr: weak.Make(e), pool: p}, true
}

// NamedWeak pairs a pool entry's name with a weak handle to it, the result
// shape of Search.
type NamedWeak[T any] struct {
	Name string
	Ref  Weak[T]
}

// Search returns every entry whose name has the given prefix, in ascending
// name order.
func (p *Pool[T]) Search(prefix string) []NamedWeak[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i := sort.SearchStrings(p.names, prefix)
	var out []NamedWeak[T]
	for ; i < len(p.names) && strings.HasPrefix(p.names[i], prefix); i++ {
		name := p.names[i]
		out = append(out, NamedWeak[T]{
			Name: name,
			Ref:  Weak[T]{name: name, ptr: weak.Make(p.entries[name]), pool: p},
		})
	}
	return out
}

// ClearUnlocked drops every entry the pool is the sole owner of (no
// outstanding Handle holds a strong reference to it), flagging each
// dropped entry destroyed.
func (p *Pool[T]) ClearUnlocked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	dropped := 0
	kept := p.names[:0]
	for _, name := range p.names {
		e := p.entries[name]
		if atomic.LoadInt32(&e.refs) <= 0 {
			e.markDestroyed()
			delete(p.entries, name)
			dropped++
			continue
		}
		kept = append(kept, name)
	}
	p.names = kept
	return dropped
}

// Len reports the current entry count.
func (p *Pool[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// NamedRef caches a weak handle to a named pool entry and transparently
// refreshes it from the pool whenever the cached handle has expired or been
// destroyed.
type NamedRef[T any] struct {
	pool *Pool[T]
	name string
	ref  Weak[T]
	have bool
}

// NewNamedRef creates a NamedRef bound to name within p. It does not touch
// the pool until first use.
func NewNamedRef[T any](p *Pool[T], name string) *NamedRef[T] {
	return &NamedRef[T]{pool: p, name: name}
}

// refresh re-resolves the cached weak reference if it is missing or no
// longer resolves to a live entry.
func (r *NamedRef[T]) refresh() {
	if r.have {
		if h, ok := r.ref.Lock(); ok {
			h.Release()
			return
		}
	}
	w, ok := r.pool.Lookup(r.name)
	r.ref, r.have = w, ok
}

// Lock resolves to a strong Handle, refreshing the cached reference first.
func (r *NamedRef[T]) Lock() (Handle[T], bool) {
	r.refresh()
	if !r.have {
		return Handle[T]{}, false
	}
	return r.ref.Lock()
}

// Create returns the existing live entry for this ref's name, or assigns v
// under that name and returns a handle to the newly created entry.
func (r *NamedRef[T]) Create(v *T) Handle[T] {
	if h, ok := r.Lock(); ok {
		return h
	}
	h := r.pool.Assign(r.name, v)
	r.ref, r.have = Weak[T]{name: r.name, ptr: weak.Make(h.e), pool: r.pool}, true
	return h
}

// Exists reports whether this ref's name currently resolves to a live
// entry.
func (r *NamedRef[T]) Exists() bool {
	r.refresh()
	return r.have
}

// Deref resolves to the value, panicking if the name has no live target.
func (r *NamedRef[T]) Deref() *T {
	h, ok := r.Lock()
	if !ok {
		panic(fmt.Sprintf("pool: named ref %q has no live target", r.name))
	}
	return h.Value()
}
