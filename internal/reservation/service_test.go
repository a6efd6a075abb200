package reservation

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
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []bus.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, msg bus.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

var testNow = time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)

func newTestService() (*Service, *MemoryRepository, *MemoryProjectionStore, *recordingPublisher) {
	repo := NewMemoryRepository()
	proj := NewMemoryProjectionStore()
	pub := &recordingPublisher{}
	svc := NewService(repo, proj, pub, nil, func() time.Time { return testNow })
	return svc, repo, proj, pub
}

func TestCreatePublishesReservationCreated(t *testing.T) {
	svc, _, proj, pub := newTestService()
	require.NoError(t, proj.Upsert(context.Background(), DinnerSnapshot{ID: 42, Name: "Chez Amina"}))

	r, err := svc.Create(context.Background(), 42, 5)
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, event.TopicReservationCreated, msg.Topic)
	assert.Equal(t, "42", msg.Key, "partitioned by dinner id")

	var fact event.ReservationCreated
	require.NoError(t, event.Unmarshal(msg.Body, &fact))
	assert.Equal(t, r.ID, fact.ReservationID)
	assert.Equal(t, int64(42), fact.DinnerID)
	assert.Equal(t, int64(5), fact.GuestID)
	assert.Equal(t, "Chez Amina", fact.RestaurantName)
	assert.True(t, fact.ReservationTime.Equal(testNow))
}

func TestCreateFallsBackWhenProjectionMissing(t *testing.T) {
	svc, _, _, pub := newTestService()

	_, err := svc.Create(context.Background(), 99, 5)
	require.NoError(t, err)

	var fact event.ReservationCreated
	require.NoError(t, event.Unmarshal(pub.messages[0].Body, &fact))
	assert.Equal(t, "Unknown Restaurant", fact.RestaurantName)
}

func TestCancelPublishesBeforeDelete(t *testing.T) {
	svc, repo, _, pub := newTestService()

	r, err := svc.Create(context.Background(), 42, 5)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), r.ID))

	require.Len(t, pub.messages, 2)
	msg := pub.messages[1]
	assert.Equal(t, event.TopicReservationCanceled, msg.Topic)

	var fact event.ReservationCanceled
	require.NoError(t, event.Unmarshal(msg.Body, &fact))
	assert.Equal(t, r.ID, fact.ReservationID)
	assert.Equal(t, int64(42), fact.DinnerID)
	assert.Equal(t, int64(5), fact.GuestID)

	_, err = repo.ByID(context.Background(), r.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "row is deleted after the fact is published")
}

func TestCancelMissingReservation(t *testing.T) {
	svc, _, _, pub := newTestService()

	err := svc.Cancel(context.Background(), "no-such-id")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	assert.Empty(t, pub.messages)
}

func TestGuestIDsByDinnerReadsLiveRows(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), 42, 5)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 42, 9)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 7, 3)
	require.NoError(t, err)

	ids, err := svc.GuestIDsByDinner(context.Background(), 42)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{5, 9}, ids)
}

func TestProjectorUpsertsFromDinnerCreated(t *testing.T) {
	store := NewMemoryProjectionStore()
	projector := NewDinnerProjector(store, nil)

	b := bus.NewInMemory(bus.RetryPolicy{Attempts: 3, Backoff: 0}, nil)
	require.NoError(t, projector.Register(b))

	fact := event.DinnerCreated{
		EventType:      event.TypeDinnerCreated,
		EventTimestamp: testNow,
		Dinner: event.DinnerSnapshot{
			ID: 42, HostID: 1, MenuID: 2, Name: "Chez Amina",
			StartTime: testNow, EndTime: testNow.Add(3 * time.Hour),
			Address: "1 Main St, Lyon, ARA, 69002, France", CuisineType: "Moroccan",
			MaxGuestCount: 6, Status: "UPCOMING",
		},
	}
	body, err := event.Marshal(fact)
	require.NoError(t, err)
	msg := bus.NewMessage(event.TopicDinnerCreated, "42", event.TypeDinnerCreated, event.SchemaVersion, body)
	require.NoError(t, b.Publish(context.Background(), msg))

	snap, ok, err := store.ByID(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Chez Amina", snap.Name)
	assert.Equal(t, "UPCOMING", snap.Status)

	// Redelivery overwrites with identical data.
	require.NoError(t, b.Publish(context.Background(), msg))
	snap, ok, err = store.ByID(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Chez Amina", snap.Name)
}
