package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/metrics"
	"github.com/aura-webinar/feedbackhub/internal/notify"
)

// Registry keeps one dashboard per signed-in organizer, each subscribed to change signals.
type Registry struct {
	loader Loader
	source notify.Source
	logger *zap.Logger

	mu     sync.Mutex
	boards map[string]*Dashboard
}

// NewRegistry creates an empty registry.
func NewRegistry(loader Loader, source notify.Source, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{loader: loader, source: source, logger: logger, boards: make(map[string]*Dashboard)}
}

// Get returns owner's dashboard, creating, attaching and loading it on first use.
// A new dashboard becomes visible to other callers only after its first load.
func (r *Registry) Get(ctx context.Context, owner string) *Dashboard {
	r.mu.Lock()
	d, ok := r.boards[owner]
	r.mu.Unlock()
	if ok {
		return d
	}

	d = New(r.loader, r.logger.With(zap.String("owner", owner)))
	if r.source != nil {
		d.Attach(r.source)
	}
	d.Refresh(ctx)

	r.mu.Lock()
	if existing, ok := r.boards[owner]; ok {
		r.mu.Unlock()
		d.Detach()
		return existing
	}
	r.boards[owner] = d
	r.mu.Unlock()
	metrics.DashboardsActive.Inc()
	return d
}

// Drop detaches and forgets owner's dashboard. Unknown owners are ignored.
func (r *Registry) Drop(owner string) {
	r.mu.Lock()
	d, ok := r.boards[owner]
	delete(r.boards, owner)
	r.mu.Unlock()
	if ok {
		d.Detach()
		metrics.DashboardsActive.Dec()
	}
}

// Len returns the number of live dashboards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}
