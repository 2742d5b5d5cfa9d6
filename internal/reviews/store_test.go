package reviews

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/notify"
	"github.com/aura-webinar/feedbackhub/pkg/kv"
)

type failingKV struct {
	getErr error
	setErr error
}

func (f *failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f *failingKV) Set(context.Context, string, []byte) error   { return f.setErr }

// flakyKV fails the next failGets reads, then delegates to the wrapped store.
type flakyKV struct {
	*kv.Memory
	mu       sync.Mutex
	failGets int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("i/o timeout")
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyKV) failNext() {
	f.mu.Lock()
	f.failGets++
	f.mu.Unlock()
}

func review(id string, s models.Sentiment, at time.Time) models.Review {
	return models.Review{
		ID:              id,
		Email:           "a@b.com",
		Rating:          5,
		FavoriteSession: "Talk " + id,
		Improvement:     "more snacks",
		Topics:          []string{"AI & ML"},
		Sentiment:       s,
		Timestamp:       at,
	}
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	s := NewStore(kv.NewMemory("a"), "", nil, nil)
	got := s.Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, DefaultKey, s.Key())
}

func TestStore_LoadCorruptIsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory("a")
	require.NoError(t, mem.Set(ctx, DefaultKey, []byte("not json")))

	s := NewStore(mem, DefaultKey, nil, nil)
	assert.Empty(t, s.Load(ctx))
}

func TestStore_LoadReadErrorIsEmpty(t *testing.T) {
	s := NewStore(&failingKV{getErr: errors.New("connection refused")}, DefaultKey, nil, nil)
	assert.Empty(t, s.Load(context.Background()))
}

func TestStore_AppendAfterReadErrorKeepsCollection(t *testing.T) {
	ctx := context.Background()
	backend := &flakyKV{Memory: kv.NewMemory("a")}
	bus := notify.NewBus()
	fired := 0
	bus.Subscribe(func() { fired++ })
	s := NewStore(backend, DefaultKey, bus, nil)

	at := time.Date(2025, 11, 8, 17, 0, 0, 0, time.UTC)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.Append(ctx, review(id, models.SentimentPositive, at)))
	}
	require.Equal(t, 3, fired)

	backend.failNext()
	err := s.Append(ctx, review("4", models.SentimentPositive, at))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i/o timeout")
	assert.Equal(t, 3, fired)

	got := s.Load(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, "3", got[0].ID)

	require.NoError(t, s.Append(ctx, review("4", models.SentimentPositive, at)))
	assert.Len(t, s.Load(ctx), 4)
}

func TestStore_AppendThenLoadReturnsReviewFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory("a"), DefaultKey, nil, nil)
	base := time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)

	older := review("1", models.SentimentNeutral, base)
	newer := review("2", models.SentimentPositive, base.Add(time.Minute).Add(250*time.Millisecond))
	require.NoError(t, s.Append(ctx, older))
	require.NoError(t, s.Append(ctx, newer))

	got := s.Load(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)

	first := got[0]
	assert.True(t, first.Timestamp.Equal(newer.Timestamp))
	first.Timestamp = newer.Timestamp
	assert.Equal(t, newer, first)
}

func TestStore_AppendRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory("a"), DefaultKey, nil, nil)
	at := time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, review("1", models.SentimentPositive, at)))
	err := s.Append(ctx, review("1", models.SentimentNegative, at))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, s.Load(ctx), 1)
}

func TestStore_AppendOverwritesCorruptBlob(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory("a")
	require.NoError(t, mem.Set(ctx, DefaultKey, []byte("][")))

	s := NewStore(mem, DefaultKey, nil, nil)
	require.NoError(t, s.Append(ctx, review("1", models.SentimentPositive, time.Now().UTC().Truncate(time.Millisecond))))
	assert.Len(t, s.Load(ctx), 1)
}

func TestStore_AppendWriteErrorDoesNotNotify(t *testing.T) {
	bus := notify.NewBus()
	fired := 0
	bus.Subscribe(func() { fired++ })

	s := NewStore(&failingKV{getErr: kv.ErrNotFound, setErr: errors.New("disk full")}, DefaultKey, bus, nil)
	err := s.Append(context.Background(), review("1", models.SentimentPositive, time.Now()))
	assert.Error(t, err)
	assert.Equal(t, 0, fired)
}

func TestStore_AppendNotifiesSameProcess(t *testing.T) {
	bus := notify.NewBus()
	s := NewStore(kv.NewMemory("a"), DefaultKey, bus, nil)

	var seen []int
	bus.Subscribe(func() { seen = append(seen, len(s.Load(context.Background()))) })

	require.NoError(t, s.Append(context.Background(), review("1", models.SentimentPositive, time.Now())))
	require.NoError(t, s.Append(context.Background(), review("2", models.SentimentPositive, time.Now())))
	assert.Equal(t, []int{1, 2}, seen)
}

func TestStore_AppendSignalsOtherInstances(t *testing.T) {
	ctx := context.Background()
	tabA := kv.NewMemory("tab-a")
	tabB := tabA.WithOrigin("tab-b")

	storeA := NewStore(tabA, DefaultKey, notify.NewBus(), nil)
	signalB := notify.NewStorageSignal(tabB, DefaultKey, nil)
	require.NoError(t, signalB.Start(ctx))
	defer signalB.Stop()

	fired := 0
	signalB.Subscribe(func() { fired++ })

	require.NoError(t, storeA.Append(ctx, review("1", models.SentimentPositive, time.Now())))
	assert.Equal(t, 1, fired)
}

func TestStore_ConcurrentAppendsInOneProcessKeepAll(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory("a"), DefaultKey, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, review(fmt.Sprintf("r-%d", i), models.SentimentNeutral, time.Now()))
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Load(ctx), 20)
}

func TestStore_CrossInstanceLastWriterWins(t *testing.T) {
	ctx := context.Background()
	tabA := kv.NewMemory("tab-a")
	tabB := tabA.WithOrigin("tab-b")
	at := time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)

	// Both instances read the empty collection before either writes.
	staleA := NewStore(tabA, DefaultKey, nil, nil).Load(ctx)
	staleB := NewStore(tabB, DefaultKey, nil, nil).Load(ctx)

	blobA, err := Encode(append([]models.Review{review("a", models.SentimentPositive, at)}, staleA...))
	require.NoError(t, err)
	blobB, err := Encode(append([]models.Review{review("b", models.SentimentPositive, at)}, staleB...))
	require.NoError(t, err)
	require.NoError(t, tabA.Set(ctx, DefaultKey, blobA))
	require.NoError(t, tabB.Set(ctx, DefaultKey, blobB))

	got := NewStore(tabA, DefaultKey, nil, nil).Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}
