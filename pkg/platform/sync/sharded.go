package sync

import (
	"sync"
)

const shardCount = 32

// Map is a string-keyed map split across 32 independently locked shards.
// Readers of one key never wait on writers of keys in another shard.
type Map[V any] struct {
	shards [shardCount]shard[V]
}

type shard[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func NewMap[V any]() *Map[V] {
	m := &Map[V]{}
	for i := range m.shards {
		m.shards[i].m = make(map[string]V)
	}
	return m
}

// Load returns the value stored under key.
func (m *Map[V]) Load(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// LoadOrStore stores v unless key is present. loaded reports whether the
// existing value was returned instead.
func (m *Map[V]) LoadOrStore(key string, v V) (actual V, loaded bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[key]; ok {
		return existing, true
	}
	s.m[key] = v
	return v, false
}

func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}

// DeleteFunc removes every entry for which fn returns true and reports how
// many were removed. Shards are swept one at a time.
func (m *Map[V]) DeleteFunc(fn func(key string, v V) bool) int {
	deleted := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, v := range s.m {
			if fn(k, v) {
				delete(s.m, k)
				deleted++
			}
		}
		s.mu.Unlock()
	}
	return deleted
}

func (m *Map[V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Empty keys default to shard 0.
func (m *Map[V]) shardFor(key string) *shard[V] {
	return &m.shards[shardIndex(key)]
}

func shardIndex(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % shardCount)
}

// hashString is a djb2-style hash; token hashes are already uniform.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
