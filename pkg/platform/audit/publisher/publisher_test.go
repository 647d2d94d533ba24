package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "signup/pkg/domain"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk on fire")
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID := id.MustNewRegistrationID()
	err := pub.Emit(context.Background(), audit.Event{
		RegistrationID: regID,
		Action:         audit.ActionRegistrationStarted,
	})
	require.NoError(t, err)

	events, err := store.ListByRegistration(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionRegistrationStarted, events[0].Action)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_SyncModeReturnsStoreError(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(failingStore{}, WithMetrics(metrics))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		RegistrationID: id.MustNewRegistrationID(),
		Action:         audit.ActionInitialInfoCompleted,
	})
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PersistFailures))
}

func TestPublisher_CategoryDerivedFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID := id.MustNewRegistrationID()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		RegistrationID: regID,
		Action:         audit.ActionAccountInfoCompleted,
		Category:       audit.CategoryOperations,
	}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		RegistrationID: regID,
		Action:         audit.ActionRegistrationStepRejected,
	}))

	events, err := store.ListByRegistration(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, audit.CategorySecurity, events[1].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	regID := id.MustNewRegistrationID()
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			RegistrationID: regID,
			Action:         audit.ActionRegistrationStarted,
		})
		require.NoError(t, err)
	}

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	events, err := store.ListByRegistration(context.Background(), regID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_AsyncCountsPersistFailures(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(4), WithMetrics(metrics))

	for range 3 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			RegistrationID: id.MustNewRegistrationID(),
			Action:         audit.ActionRegistrationStarted,
		}))
	}
	require.NoError(t, pub.Close())

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.PersistFailures))
}

func TestPublisher_BufferFull(t *testing.T) {
	store := memory.NewInMemoryStore()
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(store, WithAsyncBuffer(1), WithMetrics(metrics))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		dropped int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				RegistrationID: id.MustNewRegistrationID(),
				Action:         audit.ActionRegistrationStarted,
			})
			if errors.Is(err, ErrBufferFull) {
				mu.Lock()
				dropped++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.NoError(t, pub.Close())

	recent, err := store.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 50, len(recent)+dropped)
	assert.Equal(t, float64(dropped), testutil.ToFloat64(metrics.Dropped))
}

func TestPublisher_Timestamp(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	t.Run("stamps events without a timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))
		defer pub.Close()

		regID := id.MustNewRegistrationID()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			RegistrationID: regID,
			Action:         audit.ActionRegistrationStarted,
		}))

		events, err := store.ListByRegistration(context.Background(), regID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, fixed, events[0].Timestamp)
	})

	t.Run("preserves an existing timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		defer pub.Close()

		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		regID := id.MustNewRegistrationID()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			RegistrationID: regID,
			Action:         audit.ActionRegistrationStarted,
			Timestamp:      custom,
		}))

		events, err := store.ListByRegistration(context.Background(), regID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}
