package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/servicebook/internal/config"
	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/internal/repository"
)

func openStorage(t *testing.T, path string) *Storage {
	t.Helper()
	db, err := NewDB(context.Background(), config.DatabaseConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	return openStorage(t, filepath.Join(t.TempDir(), "servicebook.db"))
}

func TestSequence_StartsAtOneAndIncreases(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	var ids []uint64
	for i := 0; i < 5; i++ {
		require.NoError(t, s.WithTx(ctx, func(r *repository.Repositories) error {
			id, err := r.IDs.NextID(ctx)
			ids = append(ids, id)
			return err
		}))
	}

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids)
}

func TestSequence_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "servicebook.db")

	first := openStorage(t, path)
	for i := 0; i < 3; i++ {
		_, err := first.Repos().IDs.NextID(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, first.Close())

	second := openStorage(t, path)
	id, err := second.Repos().IDs.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)
}

func TestEntityStore_InsertReturnsPrevious(t *testing.T) {
	ctx := context.Background()
	clients := newTestStorage(t).Repos().Clients

	_, replaced, err := clients.Insert(ctx, 7, model.Client{ID: 7, Name: "Ann", ContactInfo: "ann@x.com"})
	require.NoError(t, err)
	assert.False(t, replaced)

	prev, replaced, err := clients.Insert(ctx, 7, model.Client{ID: 7, Name: "Anna", ContactInfo: "ann@x.com"})
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, "Ann", prev.Name)

	got, ok, err := clients.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Anna", got.Name)
}

func TestEntityStore_GetMissing(t *testing.T) {
	_, ok, err := newTestStorage(t).Repos().Bookings.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntityStore_PartitionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	repos := newTestStorage(t).Repos()

	_, _, err := repos.Clients.Insert(ctx, 1, model.Client{ID: 1, Name: "client"})
	require.NoError(t, err)

	_, ok, err := repos.Providers.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntityStore_IterateInKeyOrder(t *testing.T) {
	ctx := context.Background()
	providers := newTestStorage(t).Repos().Providers

	for _, id := range []uint64{30, 10, 20} {
		_, _, err := providers.Insert(ctx, id, model.ServiceProvider{ID: id, Name: "p", Availability: []uint64{id}})
		require.NoError(t, err)
	}

	seq, err := providers.Iterate(ctx)
	require.NoError(t, err)

	var keys []uint64
	for id, p := range seq {
		assert.Equal(t, id, p.ID)
		keys = append(keys, id)
	}
	assert.Equal(t, []uint64{10, 20, 30}, keys)

	// the sequence can be walked again and stops early on request
	var first []uint64
	for id := range seq {
		first = append(first, id)
		break
	}
	assert.Equal(t, []uint64{10}, first)
}

func TestEntityStore_IterateIsSnapshot(t *testing.T) {
	ctx := context.Background()
	clients := newTestStorage(t).Repos().Clients

	_, _, err := clients.Insert(ctx, 1, model.Client{ID: 1, Name: "a"})
	require.NoError(t, err)

	seq, err := clients.Iterate(ctx)
	require.NoError(t, err)

	_, _, err = clients.Insert(ctx, 2, model.Client{ID: 2, Name: "b"})
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestEntityStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "servicebook.db")
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := openStorage(t, path)
	_, _, err := first.Repos().Providers.Insert(ctx, 1, model.ServiceProvider{
		ID:           1,
		Name:         "Alice",
		ServiceType:  "cleaning",
		ContactInfo:  "a@x.com",
		CreatedAt:    created,
		Reviews:      []model.Review{{ClientID: 5, Rating: 4, Comment: "ok", CreatedAt: created}},
		Availability: []uint64{100, 200},
	})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	p, ok, err := openStorage(t, path).Repos().Providers.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", p.Name)
	assert.True(t, created.Equal(p.CreatedAt))
	assert.Equal(t, []uint64{100, 200}, p.Availability)
	require.Len(t, p.Reviews, 1)
	assert.Equal(t, uint8(4), p.Reviews[0].Rating)
}

func TestWithTx_RollsBackEveryStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(r *repository.Repositories) error {
		id, err := r.IDs.NextID(ctx)
		require.NoError(t, err)
		_, _, err = r.Providers.Insert(ctx, id, model.ServiceProvider{ID: id, Name: "p"})
		require.NoError(t, err)
		_, _, err = r.Bookings.Insert(ctx, id+1, model.Booking{ID: id + 1, ServiceProviderID: id})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok, err := s.Repos().Providers.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Repos().Bookings.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// the allocation rolled back too
	id, err := s.Repos().IDs.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestOutbox_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	outbox := s.Repos().Outbox

	first := &model.OutboxEvent{EventType: model.EventBookingCreated, Payload: []byte(`{"id":2}`)}
	second := &model.OutboxEvent{EventType: model.EventBookingConfirmed, Payload: []byte(`{"id":2}`)}
	require.NoError(t, outbox.Create(ctx, first))
	require.NoError(t, outbox.Create(ctx, second))
	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(2), second.ID)

	// outbox ids come from their own sequence
	entityID, err := s.Repos().IDs.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entityID)

	pending, err := outbox.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.EventBookingCreated, pending[0].EventType)
	assert.JSONEq(t, `{"id":2}`, string(pending[0].Payload))

	processedAt := time.Now().Add(-2 * time.Hour)
	require.NoError(t, outbox.MarkProcessed(ctx, first.ID, processedAt))
	require.NoError(t, outbox.MarkFailed(ctx, second.ID, "redis down", false))

	pending, err = outbox.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].ErrorMessage)
	assert.Equal(t, "redis down", *pending[0].ErrorMessage)

	require.NoError(t, outbox.MarkFailed(ctx, second.ID, "redis down", true))
	pending, err = outbox.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	deleted, err := outbox.DeleteProcessedBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestOutbox_ClaimPending(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	outbox := s.Repos().Outbox
	now := time.Now()
	lease := time.Minute

	for i := 0; i < 3; i++ {
		require.NoError(t, outbox.Create(ctx, &model.OutboxEvent{EventType: model.EventClientCreated, Payload: []byte(`{}`)}))
	}

	claimed, err := outbox.ClaimPending(ctx, 2, now, lease)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, uint64(1), claimed[0].ID)
	assert.Equal(t, uint64(2), claimed[1].ID)
	assert.Equal(t, model.OutboxStatusProcessing, claimed[0].Status)

	claimed, err = outbox.ClaimPending(ctx, 10, now, lease)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, uint64(3), claimed[0].ID)

	claimed, err = outbox.ClaimPending(ctx, 10, now.Add(lease/2), lease)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	pending, err := outbox.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// a failed publish hands the event back
	require.NoError(t, outbox.MarkFailed(ctx, 2, "redis down", false))
	claimed, err = outbox.ClaimPending(ctx, 10, now.Add(lease/2), lease)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, uint64(2), claimed[0].ID)
	assert.Equal(t, 1, claimed[0].RetryCount)

	// expired claims are taken over, processed ones are not
	require.NoError(t, outbox.MarkProcessed(ctx, 1, now))
	claimed, err = outbox.ClaimPending(ctx, 10, now.Add(2*lease), lease)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, uint64(2), claimed[0].ID)
	assert.Equal(t, uint64(3), claimed[1].ID)
}
