package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
	"github.com/buberdinner/dinner-marketplace/internal/identity"
)

var testNow = time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)

type recordingSender struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (s *recordingSender) Send(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func newTestEngine(sender Sender) (*Engine, *MemoryStore, *identity.MemoryStore) {
	store := NewMemoryStore()
	directory := identity.NewMemoryStore()
	engine := NewEngine(store, directory, sender, NewMemoryDedup(), nil,
		func() time.Time { return testNow })
	return engine, store, directory
}

func seedGuest(t *testing.T, directory *identity.MemoryStore, id int64, email string) {
	t.Helper()
	require.NoError(t, directory.UpsertGuest(context.Background(),
		identity.Guest{ID: id, Name: "Guest", Email: email}))
}

func captureDLT(t *testing.T, b *bus.InMemory, topic string) *[]bus.Message {
	t.Helper()
	var dead []bus.Message
	require.NoError(t, b.Subscribe(topic+bus.DLTSuffix, "ops", func(ctx context.Context, msg bus.Message) error {
		dead = append(dead, msg)
		return nil
	}))
	return &dead
}

func publishFact(t *testing.T, b *bus.InMemory, topic, eventType string, fact any) {
	t.Helper()
	body, err := event.Marshal(fact)
	require.NoError(t, err)
	msg := bus.NewMessage(topic, "k", eventType, event.SchemaVersion, body)
	require.NoError(t, b.Publish(context.Background(), msg))
}

func TestReservationCreatedSendsImmediately(t *testing.T) {
	sender := &recordingSender{}
	engine, store, directory := newTestEngine(sender)
	seedGuest(t, directory, 5, "nadia@example.com")

	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, engine.Register(b))

	publishFact(t, b, event.TopicReservationCreated, event.TypeReservationCreated,
		event.ReservationCreated{
			EventType: event.TypeReservationCreated, ReservationID: "r-1",
			DinnerID: 42, GuestID: 5, ReservationTime: testNow,
			RestaurantName: "Chez Amina",
		})

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, "nadia@example.com", sent.Email)
	assert.Equal(t, ChannelEmail, sent.Channel)
	assert.Contains(t, sent.Description, "Chez Amina")

	rows := store.All()
	require.Len(t, rows, 1)
	assert.Equal(t, StatusSent, rows[0].Status)
}

func TestReservationCreatedUnknownGuestDeadLetters(t *testing.T) {
	sender := &recordingSender{}
	engine, store, _ := newTestEngine(sender)

	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, engine.Register(b))
	dead := captureDLT(t, b, event.TopicReservationCreated)

	publishFact(t, b, event.TopicReservationCreated, event.TypeReservationCreated,
		event.ReservationCreated{
			EventType: event.TypeReservationCreated, ReservationID: "r-1",
			DinnerID: 42, GuestID: 99, ReservationTime: testNow,
		})

	assert.Empty(t, sender.sent)
	assert.Empty(t, store.All())
	require.Len(t, *dead, 1, "message for an unknown guest is dead-lettered")
}

func TestDinnerStartedFansOutAndSkipsMissingGuest(t *testing.T) {
	sender := &recordingSender{}
	engine, store, directory := newTestEngine(sender)
	seedGuest(t, directory, 1, "one@example.com")
	seedGuest(t, directory, 3, "three@example.com")
	// guest 2 never arrived in the projection

	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, engine.Register(b))
	dead := captureDLT(t, b, event.TopicDinnerStarted)

	publishFact(t, b, event.TopicDinnerStarted, event.TypeDinnerStarted,
		event.DinnerStarted{
			EventType: event.TypeDinnerStarted,
			Dinner:    event.DinnerSnapshot{ID: 42, Name: "Tagine Night"},
			GuestIDs:  []int64{1, 2, 3},
		})

	assert.Empty(t, *dead, "a missing guest must not fail the batch")

	rows := store.All()
	require.Len(t, rows, 2, "exactly one record per known guest")
	for _, n := range rows {
		assert.Equal(t, StatusPending, n.Status, "fan-out leaves delivery to the sweep")
		assert.Equal(t, ChannelInApp, n.Channel)
	}
	assert.Empty(t, sender.sent)
}

func TestDuplicateDeliveryCreatesOneNotification(t *testing.T) {
	sender := &recordingSender{}
	engine, store, directory := newTestEngine(sender)
	seedGuest(t, directory, 5, "nadia@example.com")

	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, engine.Register(b))

	body, err := event.Marshal(event.ReservationCreated{
		EventType: event.TypeReservationCreated, ReservationID: "r-1",
		DinnerID: 42, GuestID: 5, ReservationTime: testNow,
		RestaurantName: "Chez Amina",
	})
	require.NoError(t, err)
	msg := bus.NewMessage(event.TopicReservationCreated, "42",
		event.TypeReservationCreated, event.SchemaVersion, body)

	// Same correlation id delivered twice.
	require.NoError(t, b.Publish(context.Background(), msg))
	require.NoError(t, b.Publish(context.Background(), msg))

	assert.Len(t, sender.sent, 1)
	assert.Len(t, store.All(), 1)
}

func TestSweepProcessesOldestFirstAndSkipsFailed(t *testing.T) {
	sender := &recordingSender{}
	engine, store, _ := newTestEngine(sender)

	ctx := context.Background()
	t1 := testNow.Add(-3 * time.Minute)
	t2 := testNow.Add(-2 * time.Minute)
	t3 := testNow.Add(-1 * time.Minute)

	first := New(1, "a@example.com", "first", "d", ChannelInApp, UserTypeGuest, t1)
	second := New(2, "b@example.com", "second", "d", ChannelInApp, UserTypeGuest, t2)
	third := New(3, "c@example.com", "third", "d", ChannelInApp, UserTypeGuest, t3)
	failed := New(4, "d@example.com", "failed", "d", ChannelInApp, UserTypeGuest, t1).MarkFailed()

	// Insert out of order; the sweep must still run oldest first.
	require.NoError(t, store.Save(ctx, third))
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, failed))
	require.NoError(t, store.Save(ctx, second))

	require.NoError(t, engine.Sweep(ctx))

	require.Len(t, sender.sent, 3)
	assert.Equal(t, "first", sender.sent[0].Subject)
	assert.Equal(t, "second", sender.sent[1].Subject)
	assert.Equal(t, "third", sender.sent[2].Subject)

	for _, n := range store.All() {
		if n.Subject == "failed" {
			assert.Equal(t, StatusFailed, n.Status, "FAILED records are terminal")
		} else {
			assert.Equal(t, StatusSent, n.Status)
		}
	}
}

func TestSendAttemptFailureMarksFailed(t *testing.T) {
	sender := &recordingSender{err: apperr.New(apperr.CodeDeliveryFailed, "smtp refused")}
	engine, store, directory := newTestEngine(sender)
	seedGuest(t, directory, 5, "nadia@example.com")

	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, engine.Register(b))
	dead := captureDLT(t, b, event.TopicReservationCreated)

	publishFact(t, b, event.TopicReservationCreated, event.TypeReservationCreated,
		event.ReservationCreated{
			EventType: event.TypeReservationCreated, ReservationID: "r-1",
			DinnerID: 42, GuestID: 5, ReservationTime: testNow,
		})

	// Delivery failures are absorbed: no dead letter, record flips to FAILED.
	assert.Empty(t, *dead)
	rows := store.All()
	require.Len(t, rows, 1)
	assert.Equal(t, StatusFailed, rows[0].Status)

	// A later sweep never retries it.
	sender.err = nil
	require.NoError(t, engine.Sweep(context.Background()))
	assert.Empty(t, sender.sent)
}

func TestSendImmediateResolvesUserType(t *testing.T) {
	sender := &recordingSender{}
	engine, _, directory := newTestEngine(sender)
	seedGuest(t, directory, 5, "nadia@example.com")
	require.NoError(t, directory.UpsertHost(context.Background(),
		identity.Host{ID: 7, Name: "Amina", Email: "amina@example.com"}))

	ctx := context.Background()
	guestN, err := engine.SendImmediate(ctx, 5, "nadia@example.com", "s", "d", ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, UserTypeGuest, guestN.UserType)

	hostN, err := engine.SendImmediate(ctx, 7, "amina@example.com", "s", "d", ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, UserTypeHost, hostN.UserType)

	unknownN, err := engine.SendImmediate(ctx, 999, "who@example.com", "s", "d", ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, UserTypeUnknown, unknownN.UserType)
	assert.Len(t, sender.sent, 3, "unknown recipients are still delivered")
}
