// Package notify delivers "reviews changed" signals to dashboards. The signal has no
// payload; receivers reload the store. Two backends exist: an in-process Bus and a
// StorageSignal fed by the persistence layer when another instance writes.
package notify

import "sync"

// Source delivers change signals to subscribers.
type Source interface {
	Subscribe(fn func()) (cancel func())
}

// Publisher emits a change signal.
type Publisher interface {
	Publish()
}

type registry struct {
	mu     sync.RWMutex
	subs   map[int]func()
	nextID int
}

func newRegistry() registry {
	return registry{subs: make(map[int]func())}
}

func (r *registry) add(fn func()) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *registry) fire() {
	r.mu.RLock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Bus is the same-process broadcast. Publish runs subscribers synchronously.
type Bus struct {
	reg registry
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{reg: newRegistry()}
}

// Publish implements Publisher.
func (b *Bus) Publish() { b.reg.fire() }

// Subscribe implements Source.
func (b *Bus) Subscribe(fn func()) func() { return b.reg.add(fn) }

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int { return b.reg.len() }

// Multi fans one subscription out over several sources.
type Multi []Source

// Subscribe implements Source. The returned cancel releases every underlying subscription.
func (m Multi) Subscribe(fn func()) func() {
	cancels := make([]func(), 0, len(m))
	for _, s := range m {
		if s == nil {
			continue
		}
		cancels = append(cancels, s.Subscribe(fn))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
