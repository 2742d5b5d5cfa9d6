package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/feedbackhub/pkg/kv"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	var a, b int
	cancelA := bus.Subscribe(func() { a++ })
	bus.Subscribe(func() { b++ })

	bus.Publish()
	cancelA()
	bus.Publish()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, bus.Subscribers())
}

func TestBus_CancelIsIdempotent(t *testing.T) {
	bus := NewBus()
	cancel := bus.Subscribe(func() {})
	cancel()
	cancel()
	assert.Equal(t, 0, bus.Subscribers())
}

func TestStorageSignal_IgnoresOwnWrites(t *testing.T) {
	ctx := context.Background()
	tabA := kv.NewMemory("tab-a")
	tabB := tabA.WithOrigin("tab-b")

	sig := NewStorageSignal(tabA, "reviews", nil)
	require.NoError(t, sig.Start(ctx))
	require.NoError(t, sig.Start(ctx))
	defer sig.Stop()

	fired := 0
	sig.Subscribe(func() { fired++ })

	require.NoError(t, tabA.Set(ctx, "reviews", []byte(`[]`)))
	assert.Equal(t, 0, fired)

	require.NoError(t, tabB.Set(ctx, "reviews", []byte(`[]`)))
	assert.Equal(t, 1, fired)

	sig.Stop()
	require.NoError(t, tabB.Set(ctx, "reviews", []byte(`[]`)))
	assert.Equal(t, 1, fired)
}

func TestMulti_SubscribesToAll(t *testing.T) {
	local := NewBus()
	remote := NewBus()
	fired := 0

	cancel := Multi{local, nil, remote}.Subscribe(func() { fired++ })
	local.Publish()
	remote.Publish()
	cancel()
	local.Publish()

	assert.Equal(t, 2, fired)
	assert.Equal(t, 0, local.Subscribers())
	assert.Equal(t, 0, remote.Subscribers())
}
