// Package dashboard holds the review dashboard state: the loaded reviews, the filter
// mode and the presentation walk over the positive subset.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/metrics"
	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/notify"
)

const (
	EmptyDashboardMessage    = "No reviews yet. Submit feedback to get started!"
	EmptyPresentationMessage = "No positive reviews yet"
)

var (
	// ErrInvalidFilter is returned by SetFilter for unknown modes.
	ErrInvalidFilter = errors.New("invalid filter mode")
	// ErrNotPresenting is returned by navigation calls outside presentation.
	ErrNotPresenting = errors.New("not presenting")
)

// Loader is the store operation the dashboard reads from.
type Loader interface {
	Load(ctx context.Context) []models.Review
}

// View is the rendered dashboard.
type View struct {
	Filter     models.FilterMode `json:"filter"`
	Reviews    []models.Review   `json:"reviews"`
	Total      int               `json:"total"`
	Positive   int               `json:"positive"`
	CanPresent bool              `json:"can_present"`
	Presenting bool              `json:"presenting"`
	Empty      bool              `json:"empty"`
	Message    string            `json:"message,omitempty"`
}

// Slide is the presentation's current position.
type Slide struct {
	Review      *models.Review `json:"review,omitempty"`
	Topics      []string       `json:"topics,omitempty"`
	Index       int            `json:"index"`
	Position    int            `json:"position"`
	Total       int            `json:"total"`
	HasPrevious bool           `json:"has_previous"`
	HasNext     bool           `json:"has_next"`
	Empty       bool           `json:"empty"`
	Message     string         `json:"message,omitempty"`
}

// Dashboard is safe for concurrent use; every operation runs to completion under one lock.
type Dashboard struct {
	loader Loader
	logger *zap.Logger

	mu         sync.Mutex
	reviews    []models.Review
	filter     models.FilterMode
	presenting bool
	index      int
	cancel     func()
}

// New creates a dashboard with filter "all" and no reviews loaded yet.
func New(loader Loader, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{loader: loader, logger: logger, filter: models.FilterAll, reviews: []models.Review{}}
}

// Attach subscribes the dashboard to src; every signal triggers Refresh.
// A second Attach replaces the first subscription.
func (d *Dashboard) Attach(src notify.Source) {
	cancel := src.Subscribe(func() {
		metrics.DashboardRefreshesTotal.Inc()
		d.Refresh(context.Background())
	})
	d.mu.Lock()
	prev := d.cancel
	d.cancel = cancel
	d.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Detach drops the subscription made by Attach.
func (d *Dashboard) Detach() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Refresh reloads the store and replaces the review list wholesale.
func (d *Dashboard) Refresh(ctx context.Context) {
	list := d.loader.Load(ctx)
	if list == nil {
		list = []models.Review{}
	}
	d.mu.Lock()
	d.reviews = list
	d.clampLocked()
	d.mu.Unlock()
	d.logger.Debug("dashboard refreshed", zap.Int("reviews", len(list)))
}

// SetFilter changes the displayed subset. The loaded list is never modified.
func (d *Dashboard) SetFilter(mode models.FilterMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFilter, mode)
	}
	d.mu.Lock()
	d.filter = mode
	d.mu.Unlock()
	return nil
}

// Filter returns the current filter mode.
func (d *Dashboard) Filter() models.FilterMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter
}

// Reviews returns a copy of the full loaded list.
func (d *Dashboard) Reviews() []models.Review {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Review{}, d.reviews...)
}

// Displayed returns the reviews selected by the current filter.
func (d *Dashboard) Displayed() []models.Review {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.displayedLocked()
}

// Positive returns the positive subset in store order.
func (d *Dashboard) Positive() []models.Review {
	d.mu.Lock()
	defer d.mu.Unlock()
	return positiveOf(d.reviews)
}

// View renders the dashboard.
func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	shown := d.displayedLocked()
	positive := countPositive(d.reviews)
	v := View{
		Filter:     d.filter,
		Reviews:    shown,
		Total:      len(d.reviews),
		Positive:   positive,
		CanPresent: positive > 0,
		Presenting: d.presenting,
		Empty:      len(shown) == 0,
	}
	if v.Empty {
		v.Message = EmptyDashboardMessage
	}
	return v
}

// EnterPresentation starts the walk at the first positive review. With no positive
// reviews it still enters, and Current reports the empty slide.
func (d *Dashboard) EnterPresentation() Slide {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presenting = true
	d.index = 0
	return d.slideLocked()
}

// Presenting reports whether the presentation is active.
func (d *Dashboard) Presenting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presenting
}

// Next advances one slide, stopping at the last.
func (d *Dashboard) Next() (Slide, error) {
	return d.step(1)
}

// Previous goes back one slide, stopping at the first.
func (d *Dashboard) Previous() (Slide, error) {
	return d.step(-1)
}

func (d *Dashboard) step(delta int) (Slide, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.presenting {
		return Slide{}, ErrNotPresenting
	}
	d.index += delta
	d.clampLocked()
	return d.slideLocked(), nil
}

// Current returns the slide at the current index.
func (d *Dashboard) Current() (Slide, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.presenting {
		return Slide{}, ErrNotPresenting
	}
	return d.slideLocked(), nil
}

// ExitPresentation leaves the walk and discards the index.
func (d *Dashboard) ExitPresentation() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presenting = false
	d.index = 0
}

func (d *Dashboard) displayedLocked() []models.Review {
	if d.filter == models.FilterPositive {
		return positiveOf(d.reviews)
	}
	return append([]models.Review{}, d.reviews...)
}

// clampLocked keeps index inside [0, n-1] for the positive subset, or 0 when it is empty.
func (d *Dashboard) clampLocked() {
	n := countPositive(d.reviews)
	if d.index > n-1 {
		d.index = n - 1
	}
	if d.index < 0 {
		d.index = 0
	}
}

func (d *Dashboard) slideLocked() Slide {
	positive := positiveOf(d.reviews)
	n := len(positive)
	if n == 0 {
		return Slide{Empty: true, Message: EmptyPresentationMessage}
	}
	r := positive[d.index]
	return Slide{
		Review:      &r,
		Topics:      r.DisplayTopics(),
		Index:       d.index,
		Position:    d.index + 1,
		Total:       n,
		HasPrevious: d.index > 0,
		HasNext:     d.index < n-1,
	}
}

func positiveOf(list []models.Review) []models.Review {
	out := make([]models.Review, 0, len(list))
	for _, r := range list {
		if r.IsPositive() {
			out = append(out, r)
		}
	}
	return out
}

func countPositive(list []models.Review) int {
	n := 0
	for _, r := range list {
		if r.IsPositive() {
			n++
		}
	}
	return n
}
