// Package concurrent provides small mutex-guarded generic containers.
package concurrent

import "sync"

type Map[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		values: make(map[K]V),
	}
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.values[key]
	return val, ok
}

func (m *Map[K, V]) Store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores value. loaded is true when the value was already there.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.values[key]; ok {
		return existing, true
	}
	m.values[key] = value
	return value, false
}

func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
}

func (m *Map[K, V]) Length() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}

// Range calls f for each entry until f returns false. f must not modify the map.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.values {
		if !f(k, v) {
			break
		}
	}
}
