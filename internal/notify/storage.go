package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/pkg/kv"
)

// StorageSignal turns slot writes made by other instances into change signals.
// Writes made through this instance's own origin are dropped; the Bus covers those.
type StorageSignal struct {
	watcher kv.Watcher
	key     string
	logger  *zap.Logger
	reg     registry

	mu     sync.Mutex
	cancel func()
}

// NewStorageSignal creates a signal for slot key. Call Start before relying on it.
func NewStorageSignal(watcher kv.Watcher, key string, logger *zap.Logger) *StorageSignal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageSignal{watcher: watcher, key: key, logger: logger, reg: newRegistry()}
}

// Start begins watching the slot. Calling it twice is a no-op.
func (s *StorageSignal) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	self := s.watcher.Origin()
	cancel, err := s.watcher.Watch(ctx, s.key, func(origin string) {
		if origin == self {
			return
		}
		s.logger.Debug("slot changed by another instance", zap.String("key", s.key), zap.String("origin", origin))
		s.reg.fire()
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.key, err)
	}
	s.cancel = cancel
	return nil
}

// Stop ends the watch.
func (s *StorageSignal) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Subscribe implements Source.
func (s *StorageSignal) Subscribe(fn func()) func() { return s.reg.add(fn) }
