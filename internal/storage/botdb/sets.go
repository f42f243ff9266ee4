package botdb

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/yndnr/botvault/pkg/cmap"
)

// ID is the element type of an IDSet.
type ID interface {
	uint32 | uint64
}

// IDSet is a concurrent set of identifiers. Add, Remove and Clear notify
// the owning database only when they change the set.
type IDSet[T ID] struct {
	m          *cmap.Map[T, struct{}]
	onModified atomic.Pointer[func()]
}

func newIDSet[T ID]() *IDSet[T] {
	return &IDSet[T]{m: cmap.New[T, struct{}]()}
}

// Add inserts ids and returns how many were not present.
func (s *IDSet[T]) Add(ids ...T) int {
	var n int
	for _, id := range ids {
		if s.m.SetIfAbsent(id, struct{}{}) {
			n++
		}
	}
	if n > 0 {
		s.notify()
	}
	return n
}

// Remove deletes ids and returns how many were present.
func (s *IDSet[T]) Remove(ids ...T) int {
	var n int
	for _, id := range ids {
		if s.m.Delete(id) {
			n++
		}
	}
	if n > 0 {
		s.notify()
	}
	return n
}

// Clear empties the set and reports whether it held anything.
func (s *IDSet[T]) Clear() bool {
	if s.m.Clear() == 0 {
		return false
	}
	s.notify()
	return true
}

// Contains reports membership.
func (s *IDSet[T]) Contains(id T) bool {
	return s.m.Has(id)
}

// Len returns the number of members.
func (s *IDSet[T]) Len() int {
	return s.m.Len()
}

// Items returns the members in ascending order.
func (s *IDSet[T]) Items() []T {
	items := s.m.Keys()
	slices.Sort(items)
	return items
}

func (s *IDSet[T]) load(ids []T) {
	for _, id := range ids {
		s.m.Set(id, struct{}{})
	}
}

func (s *IDSet[T]) subscribe(fn func()) {
	if fn == nil {
		s.onModified.Store(nil)
		return
	}
	s.onModified.Store(&fn)
}

func (s *IDSet[T]) notify() {
	if fn := s.onModified.Load(); fn != nil {
		(*fn)()
	}
}

// ExpiryMap maps app IDs to the time their entry lapses.
type ExpiryMap struct {
	m          *cmap.Map[uint32, time.Time]
	onModified atomic.Pointer[func()]
}

func newExpiryMap() *ExpiryMap {
	return &ExpiryMap{m: cmap.New[uint32, time.Time]()}
}

// Set stores until for id and reports whether the map changed.
func (e *ExpiryMap) Set(id uint32, until time.Time) bool {
	prev, loaded := e.m.Swap(id, until)
	if loaded && prev.Equal(until) {
		return false
	}
	e.notify()
	return true
}

// Remove deletes id and reports whether it was present.
func (e *ExpiryMap) Remove(id uint32) bool {
	if !e.m.Delete(id) {
		return false
	}
	e.notify()
	return true
}

// Get returns the expiry of id.
func (e *ExpiryMap) Get(id uint32) (time.Time, bool) {
	return e.m.Get(id)
}

// Len returns the number of entries.
func (e *ExpiryMap) Len() int {
	return e.m.Len()
}

// Items returns a copy of the entries.
func (e *ExpiryMap) Items() map[uint32]time.Time {
	return e.m.Snapshot()
}

// removeExpired deletes every entry whose expiry is at or before now.
func (e *ExpiryMap) removeExpired(now time.Time) int {
	expired := func(until time.Time) bool { return !until.After(now) }

	var candidates []uint32
	e.m.Range(func(id uint32, until time.Time) bool {
		if expired(until) {
			candidates = append(candidates, id)
		}
		return true
	})

	var n int
	for _, id := range candidates {
		// Re-checked under the shard lock in case Set extended it meanwhile.
		if e.m.DeleteIf(id, expired) {
			n++
		}
	}
	if n > 0 {
		e.notify()
	}
	return n
}

func (e *ExpiryMap) load(entries map[uint32]time.Time) {
	for id, until := range entries {
		e.m.Set(id, until)
	}
}

func (e *ExpiryMap) subscribe(fn func()) {
	if fn == nil {
		e.onModified.Store(nil)
		return
	}
	e.onModified.Store(&fn)
}

func (e *ExpiryMap) notify() {
	if fn := e.onModified.Load(); fn != nil {
		(*fn)()
	}
}
