// Package cache implements the LRU object cache: a map from a
// record's canonical identifier to a shared, immutable snapshot, touched on
// every load and evicted oldest-first when a caller asks to shrink it.
package cache

import (
	"fmt"

	"github.com/AlMarentu/mobs-go/core"
)

// entry is one cached snapshot, along with the bookkeeping the dual-map
// design needs to find and evict it in touch order.
type entry struct {
	snapshot core.Recordish
	sequence int64
	size     int
}

// Cache is the LRU object cache. The zero value is not usable; use New.
type Cache struct {
	byID    map[string]*entry
	bySeq   map[int64]string
	nextSeq int64
	bytes   int
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{byID: map[string]*entry{}, bySeq: map[int64]string{}}
}

// Save deep-copies r into a fresh snapshot and inserts or replaces it under
// r's canonical identifier, recording size as the caller's size hint for
// ReduceBytes.
func (c *Cache) Save(r core.Recordish, size int) error {
	id, err := core.Identifier(r)
	if err != nil {
		return fmt.Errorf("cache: save: %w", err)
	}
	snap, err := core.Clone(r)
	if err != nil {
		return fmt.Errorf("cache: save: %w", err)
	}
	c.insert(id, snap, size)
	return nil
}

// SaveSnapshot inserts or replaces the entry under id with snap directly,
// without copying: existing holders of a previously cached snapshot are
// unaffected, since a snapshot is never mutated in place once cached.
func (c *Cache) SaveSnapshot(id string, snap core.Recordish, size int) {
	c.insert(id, snap, size)
}

// Load looks up r's canonical identifier; on a hit, the cached snapshot is
// copied onto r and the entry is touched (moved to most-recently-used).
func (c *Cache) Load(r core.Recordish) (bool, error) {
	id, err := core.Identifier(r)
	if err != nil {
		return false, fmt.Errorf("cache: load: %w", err)
	}
	e, ok := c.byID[id]
	if !ok {
		return false, nil
	}
	if err := core.CopyInto(r, e.snapshot); err != nil {
		return false, fmt.Errorf("cache: load: %w", err)
	}
	c.touch(id)
	return true, nil
}

// Exists reports whether r's canonical identifier is cached, without
// touching the LRU order.
func (c *Cache) Exists(r core.Recordish) (bool, error) {
	id, err := core.Identifier(r)
	if err != nil {
		return false, fmt.Errorf("cache: exists: %w", err)
	}
	_, ok := c.byID[id]
	return ok, nil
}

// Search looks up a full canonical identifier directly, with no LRU touch
// and no type check; callers are expected to know (and assert) the
// concrete type the identifier's type-name segment names.
func (c *Cache) Search(identifier string) (core.Recordish, bool) {
	e, ok := c.byID[identifier]
	if !ok {
		return nil, false
	}
	return e.snapshot, true
}

// ReduceCount evicts the oldest-touched entries until at most n remain,
// returning the resulting count.
func (c *Cache) ReduceCount(n int) int {
	for len(c.byID) > n {
		c.evictOldest()
	}
	return len(c.byID)
}

// ReduceBytes evicts the oldest-touched entries until the sum of their size
// hints is at most n, returning the resulting total.
func (c *Cache) ReduceBytes(n int) int {
	for c.bytes > n && len(c.byID) > 0 {
		c.evictOldest()
	}
	return c.bytes
}

// Len reports the current entry count.
func (c *Cache) Len() int { return len(c.byID) }

func (c *Cache) insert(id string, snap core.Recordish, size int) {
	if old, ok := c.byID[id]; ok {
		delete(c.bySeq, old.sequence)
		c.bytes -= old.size
	}
	seq := c.nextSeq
	c.nextSeq++
	c.byID[id] = &entry{snapshot: snap, sequence: seq, size: size}
	c.bySeq[seq] = id
	c.bytes += size
}

// touch reinserts id's entry under a fresh sequence number, making it the
// most-recently-used entry.
func (c *Cache) touch(id string) {
	e, ok := c.byID[id]
	if !ok {
		c.fatalInconsistent(id)
	}
	delete(c.bySeq, e.sequence)
	e.sequence = c.nextSeq
	c.nextSeq++
	c.bySeq[e.sequence] = id
}

// evictOldest drops the single lowest-sequence entry, one entry per call,
// checking the dual maps agree.
func (c *Cache) evictOldest() {
	if len(c.bySeq) == 0 {
		return
	}
	var minSeq int64
	first := true
	for seq := range c.bySeq {
		if first || seq < minSeq {
			minSeq = seq
			first = false
		}
	}
	id, ok := c.bySeq[minSeq]
	if !ok {
		c.fatalInconsistent(id)
	}
	e, ok := c.byID[id]
	if !ok {
		c.fatalInconsistent(id)
	}
	delete(c.bySeq, minSeq)
	delete(c.byID, id)
	c.bytes -= e.size
}

// fatalInconsistent reports a cache-inconsistency failure: the two maps
// disagreeing is a bug in this package, not a recoverable caller error, so
// it panics rather than returning an error value.
func (c *Cache) fatalInconsistent(id string) {
	panic(fmt.Sprintf("cache: internal state inconsistent for identifier %q", id))
}
