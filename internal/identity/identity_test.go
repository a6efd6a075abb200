package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
)

func publishGuest(t *testing.T, b *bus.InMemory, fact event.GuestCreated) {
	t.Helper()
	body, err := event.Marshal(fact)
	require.NoError(t, err)
	msg := bus.NewMessage(event.TopicGuestCreated, "g", event.TypeGuestCreated, event.SchemaVersion, body)
	require.NoError(t, b.Publish(context.Background(), msg))
}

func TestGuestCreatedUpsertIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	projector := NewProjector(store, nil)
	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, projector.Register(b, "notification-group"))

	fact := event.GuestCreated{
		EventType:      event.TypeGuestCreated,
		EventTimestamp: time.Now().UTC(),
		ID:             5,
		Name:           "Nadia",
		Email:          "nadia@example.com",
	}

	// Redelivery overwrites with identical data; no duplicates, no error.
	publishGuest(t, b, fact)
	publishGuest(t, b, fact)

	g, ok, err := store.GuestByID(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Nadia", g.Name)
	assert.Equal(t, "nadia@example.com", g.Email)
}

func TestHostCreatedUpsert(t *testing.T) {
	store := NewMemoryStore()
	projector := NewProjector(store, nil)
	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, projector.Register(b, "notification-group"))

	body, err := event.Marshal(event.HostCreated{
		EventType: event.TypeHostCreated, ID: 1, Name: "Amina", Email: "amina@example.com",
	})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(),
		bus.NewMessage(event.TopicHostCreated, "h", event.TypeHostCreated, event.SchemaVersion, body)))

	h, ok, err := store.HostByID(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Amina", h.Name)

	_, ok, err = store.GuestByID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok, "hosts are not guests")
}

func TestLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.UpsertGuest(context.Background(), Guest{ID: 5, Name: "Old", Email: "old@example.com"}))
	require.NoError(t, store.UpsertGuest(context.Background(), Guest{ID: 5, Name: "New", Email: "new@example.com"}))

	g, ok, err := store.GuestByID(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "New", g.Name)
}
