// Package cmap provides a sharded concurrent map.
//
// Keys are spread over a power-of-two number of shards by a murmur3 hash;
// every shard carries its own RWMutex, so writers to different shards never
// contend. The mutating operations report whether they changed the map,
// which lets callers build change-tracked collections on top of it without
// a second lock.
//
// Usage:
//
//	m := cmap.New[uint32, struct{}]()
//	if m.SetIfAbsent(440, struct{}{}) {
//		// newly added
//	}
//
// Iteration locks one shard at a time, so a Range over a map that is being
// mutated concurrently observes a per-shard consistent view only.
package cmap
