// Package reviews is the Review Store: one kv slot holding the whole collection, newest first.
//
// Append is a read-modify-write. Inside one process it is serialized; across instances
// sharing a slot it is not, and the last writer wins. Concurrent appends from two
// instances can lose one review. This is the accepted consistency model.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/metrics"
	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/notify"
	"github.com/aura-webinar/feedbackhub/pkg/kv"
)

// DefaultKey is the slot name used when none is configured.
const DefaultKey = "reviews"

// ErrDuplicateID is returned by Append when the id already exists in the collection.
var ErrDuplicateID = errors.New("review id already exists")

// Store loads and appends reviews.
type Store struct {
	kv     kv.Store
	key    string
	events notify.Publisher
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore creates a review store on slot key. events receives a signal after every append.
func NewStore(store kv.Store, key string, events notify.Publisher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: store, key: key, events: events, logger: logger}
}

// Key returns the slot name.
func (s *Store) Key() string { return s.key }

// Load returns the whole collection. Missing, unreadable or corrupt data yields an empty
// slice; the failure is logged and never returned.
func (s *Store) Load(ctx context.Context) []models.Review {
	list, err := s.load(ctx)
	if err != nil {
		reason := "read"
		if errors.Is(err, errCorrupt) {
			reason = "decode"
		}
		metrics.StoreLoadFailuresTotal.WithLabelValues(reason).Inc()
		s.logger.Warn("review store load failed", zap.String("key", s.key), zap.String("reason", reason), zap.Error(err))
		return []models.Review{}
	}
	metrics.StoreReviews.Set(float64(len(list)))
	return list
}

var errCorrupt = errors.New("review blob corrupt")

// load reads the slot. A missing slot is an empty collection; read failures and
// corrupt blobs are returned, the latter wrapping errCorrupt.
func (s *Store) load(ctx context.Context) ([]models.Review, error) {
	blob, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return []models.Review{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reviews: %w", err)
	}
	list, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return list, nil
}

// Append inserts r at the head of the collection and writes the collection back.
// Observers are signalled after a successful write. A failed read aborts the append so
// the stored collection is never replaced by a partial one; a corrupt blob is overwritten.
func (s *Store) Append(ctx context.Context, r models.Review) error {
	if err := s.append(ctx, r); err != nil {
		metrics.StoreAppendsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.StoreAppendsTotal.WithLabelValues("ok").Inc()
	if s.events != nil {
		s.events.Publish()
	}
	return nil
}

func (s *Store) append(ctx context.Context, r models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if errors.Is(err, errCorrupt) {
		metrics.StoreLoadFailuresTotal.WithLabelValues("decode").Inc()
		s.logger.Warn("overwriting corrupt review blob", zap.String("key", s.key), zap.Error(err))
		current = []models.Review{}
	} else if err != nil {
		return err
	}
	for _, existing := range current {
		if existing.ID == r.ID {
			return fmt.Errorf("append %s: %w", r.ID, ErrDuplicateID)
		}
	}
	next := make([]models.Review, 0, len(current)+1)
	next = append(next, r)
	next = append(next, current...)

	blob, err := Encode(next)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, blob); err != nil {
		return fmt.Errorf("write reviews: %w", err)
	}
	metrics.StoreReviews.Set(float64(len(next)))
	s.logger.Debug("review appended", zap.String("id", r.ID), zap.Int("total", len(next)))
	return nil
}
