package kv

import (
	"context"
	"sync"
)

type memoryState struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[int]memoryWatch
	nextID   int
}

type memoryWatch struct {
	key string
	fn  ChangeHandler
}

// Memory is an in-process Store. Views made with WithOrigin share data and watchers,
// which lets one process stand in for several application instances.
type Memory struct {
	state  *memoryState
	origin string
}

// NewMemory creates an empty in-memory store.
func NewMemory(origin string) *Memory {
	return &Memory{
		state: &memoryState{
			data:     make(map[string][]byte),
			watchers: make(map[int]memoryWatch),
		},
		origin: origin,
	}
}

// WithOrigin returns a view over the same slots that writes as another instance.
func (m *Memory) WithOrigin(origin string) *Memory {
	return &Memory{state: m.state, origin: origin}
}

// Origin implements Watcher.
func (m *Memory) Origin() string { return m.origin }

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	v, ok := m.state.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set implements Store and signals every watcher of key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	m.state.mu.Lock()
	m.state.data[key] = buf
	var fns []ChangeHandler
	for _, w := range m.state.watchers {
		if w.key == key {
			fns = append(fns, w.fn)
		}
	}
	m.state.mu.Unlock()

	for _, fn := range fns {
		fn(m.origin)
	}
	return nil
}

// Delete removes a slot. Used to simulate an external clear.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.state.mu.Lock()
	delete(m.state.data, key)
	var fns []ChangeHandler
	for _, w := range m.state.watchers {
		if w.key == key {
			fns = append(fns, w.fn)
		}
	}
	m.state.mu.Unlock()

	for _, fn := range fns {
		fn(m.origin)
	}
	return nil
}

// Watch implements Watcher.
func (m *Memory) Watch(_ context.Context, key string, fn ChangeHandler) (func(), error) {
	m.state.mu.Lock()
	id := m.state.nextID
	m.state.nextID++
	m.state.watchers[id] = memoryWatch{key: key, fn: fn}
	m.state.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.state.mu.Lock()
			delete(m.state.watchers, id)
			m.state.mu.Unlock()
		})
	}, nil
}
