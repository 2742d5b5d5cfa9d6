package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/notify"
)

type mockLoader struct {
	mu    sync.Mutex
	list  []models.Review
	loads int
}

func (m *mockLoader) Load(context.Context) []models.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return append([]models.Review{}, m.list...)
}

func (m *mockLoader) set(list ...models.Review) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = list
}

func rev(id string, s models.Sentiment) models.Review {
	return models.Review{ID: id, Email: id + "@b.com", Sentiment: s, Timestamp: time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)}
}

func ids(list []models.Review) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func mixed() []models.Review {
	return []models.Review{
		rev("p1", models.SentimentPositive),
		rev("n1", models.SentimentNegative),
		rev("p2", models.SentimentPositive),
		rev("u1", models.SentimentNeutral),
		rev("p3", models.SentimentPositive),
	}
}

func newLoaded(list ...models.Review) (*Dashboard, *mockLoader) {
	l := &mockLoader{}
	l.set(list...)
	d := New(l, nil)
	d.Refresh(context.Background())
	return d, l
}

func TestDashboard_DefaultsToAll(t *testing.T) {
	d, _ := newLoaded(mixed()...)
	assert.Equal(t, models.FilterAll, d.Filter())
	assert.Equal(t, []string{"p1", "n1", "p2", "u1", "p3"}, ids(d.Displayed()))
	assert.False(t, d.Presenting())
}

func TestDashboard_FilterIsNonDestructive(t *testing.T) {
	d, _ := newLoaded(mixed()...)
	original := d.Displayed()

	require.NoError(t, d.SetFilter(models.FilterPositive))
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(d.Displayed()))
	require.NoError(t, d.SetFilter(models.FilterPositive))
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(d.Displayed()))

	require.NoError(t, d.SetFilter(models.FilterAll))
	assert.Equal(t, original, d.Displayed())
	assert.Equal(t, original, d.Reviews())
}

func TestDashboard_InvalidFilter(t *testing.T) {
	d, _ := newLoaded(mixed()...)
	err := d.SetFilter("negative")
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.Equal(t, models.FilterAll, d.Filter())
}

func TestDashboard_View(t *testing.T) {
	d, _ := newLoaded(mixed()...)
	require.NoError(t, d.SetFilter(models.FilterPositive))

	v := d.View()
	assert.Equal(t, models.FilterPositive, v.Filter)
	assert.Equal(t, 5, v.Total)
	assert.Equal(t, 3, v.Positive)
	assert.True(t, v.CanPresent)
	assert.False(t, v.Empty)
	assert.Len(t, v.Reviews, 3)
}

func TestDashboard_EmptyView(t *testing.T) {
	d, _ := newLoaded()
	v := d.View()
	assert.True(t, v.Empty)
	assert.False(t, v.CanPresent)
	assert.Equal(t, EmptyDashboardMessage, v.Message)
	assert.NotNil(t, v.Reviews)
}

func TestDashboard_PresentationWalksPositiveSubsetRegardlessOfFilter(t *testing.T) {
	d, _ := newLoaded(mixed()...)
	require.NoError(t, d.SetFilter(models.FilterAll))

	s := d.EnterPresentation()
	require.False(t, s.Empty)
	assert.Equal(t, "p1", s.Review.ID)
	assert.Equal(t, 1, s.Position)
	assert.Equal(t, 3, s.Total)
	assert.False(t, s.HasPrevious)
	assert.True(t, s.HasNext)

	s, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "p2", s.Review.ID)

	s, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "p3", s.Review.ID)
	assert.False(t, s.HasNext)
}

func TestDashboard_NavigationClamps(t *testing.T) {
	d, _ := newLoaded(mixed()...)
	d.EnterPresentation()

	s, err := d.Previous()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index)

	for i := 0; i < 10; i++ {
		s, err = d.Next()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Index, 0)
		assert.LessOrEqual(t, s.Index, 2)
	}
	assert.Equal(t, 2, s.Index)
	assert.Equal(t, "p3", s.Review.ID)
}

func TestDashboard_ExitDiscardsIndex(t *testing.T) {
	d, _ := newLoaded(mixed()...)
	d.EnterPresentation()
	_, _ = d.Next()
	_, _ = d.Next()

	d.ExitPresentation()
	assert.False(t, d.Presenting())
	_, err := d.Next()
	assert.ErrorIs(t, err, ErrNotPresenting)
	_, err = d.Current()
	assert.ErrorIs(t, err, ErrNotPresenting)

	s := d.EnterPresentation()
	assert.Equal(t, 0, s.Index)
}

func TestDashboard_EnterWithNoPositiveReviews(t *testing.T) {
	d, _ := newLoaded(rev("n1", models.SentimentNegative))

	s := d.EnterPresentation()
	assert.True(t, s.Empty)
	assert.Nil(t, s.Review)
	assert.Equal(t, EmptyPresentationMessage, s.Message)

	s, err := d.Next()
	require.NoError(t, err)
	assert.True(t, s.Empty)
	s, err = d.Previous()
	require.NoError(t, err)
	assert.True(t, s.Empty)
}

func TestDashboard_PositiveSubsetShrinksWhilePresenting(t *testing.T) {
	d, l := newLoaded(mixed()...)
	d.EnterPresentation()
	_, _ = d.Next()
	_, _ = d.Next()

	l.set(rev("p1", models.SentimentPositive))
	d.Refresh(context.Background())
	s, err := d.Current()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, "p1", s.Review.ID)

	l.set()
	d.Refresh(context.Background())
	s, err = d.Current()
	require.NoError(t, err)
	assert.True(t, s.Empty)
	assert.True(t, d.Presenting())
}

func TestDashboard_AttachRefreshesOnSignal(t *testing.T) {
	l := &mockLoader{}
	d := New(l, nil)
	bus := notify.NewBus()
	d.Attach(bus)

	l.set(rev("p1", models.SentimentPositive))
	bus.Publish()
	assert.Equal(t, []string{"p1"}, ids(d.Displayed()))

	l.set(rev("p2", models.SentimentPositive), rev("p1", models.SentimentPositive))
	bus.Publish()
	assert.Equal(t, []string{"p2", "p1"}, ids(d.Displayed()))

	d.Detach()
	assert.Equal(t, 0, bus.Subscribers())
	l.set()
	bus.Publish()
	assert.Len(t, d.Displayed(), 2)
}

func TestDashboard_ReattachReplacesSubscription(t *testing.T) {
	l := &mockLoader{}
	d := New(l, nil)
	first := notify.NewBus()
	second := notify.NewBus()

	d.Attach(first)
	d.Attach(second)
	assert.Equal(t, 0, first.Subscribers())
	assert.Equal(t, 1, second.Subscribers())
}
