package dashboard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/notify"
)

func TestRegistry_OneDashboardPerOwner(t *testing.T) {
	l := &mockLoader{}
	l.set(mixed()...)
	bus := notify.NewBus()
	reg := NewRegistry(l, bus, nil)
	ctx := context.Background()

	a := reg.Get(ctx, "alice")
	assert.Same(t, a, reg.Get(ctx, "alice"))
	b := reg.Get(ctx, "bob")
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, bus.Subscribers())
	assert.Equal(t, 2, l.loads)

	// state is per owner
	_ = a.SetFilter(models.FilterPositive)
	assert.Equal(t, models.FilterAll, b.Filter())
}

func TestRegistry_DropDetaches(t *testing.T) {
	l := &mockLoader{}
	bus := notify.NewBus()
	reg := NewRegistry(l, bus, nil)
	ctx := context.Background()

	d := reg.Get(ctx, "alice")
	reg.Drop("alice")
	reg.Drop("nobody")
	assert.Zero(t, reg.Len())
	assert.Zero(t, bus.Subscribers())

	l.set(rev("p1", models.SentimentPositive))
	bus.Publish()
	assert.Empty(t, d.Reviews())

	assert.NotSame(t, d, reg.Get(ctx, "alice"))
}

// gatedLoader blocks the first Load until release is closed.
type gatedLoader struct {
	mockLoader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedLoader) Load(ctx context.Context) []models.Review {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		<-g.release
	}
	return g.mockLoader.Load(ctx)
}

func TestRegistry_ConcurrentGetNeverSeesUnloadedDashboard(t *testing.T) {
	l := &gatedLoader{started: make(chan struct{}), release: make(chan struct{})}
	l.set(mixed()...)
	bus := notify.NewBus()
	reg := NewRegistry(l, bus, nil)
	ctx := context.Background()

	first := make(chan *Dashboard)
	go func() { first <- reg.Get(ctx, "alice") }()
	<-l.started

	// the first load is still blocked; a second caller must not get an empty board
	second := reg.Get(ctx, "alice")
	assert.Len(t, second.Reviews(), 5)

	close(l.release)
	a := <-first
	assert.Same(t, second, a)
	assert.Same(t, second, reg.Get(ctx, "alice"))
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, bus.Subscribers())
}
