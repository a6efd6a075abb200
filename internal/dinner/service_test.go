package dinner

import (
	"context"
	"errors"
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

func (p *recordingPublisher) byTopic(topic string) []bus.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []bus.Message
	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

type stubIdentity struct{ isHost bool }

func (s stubIdentity) IsHost(ctx context.Context, userID int64) (bool, error) {
	return s.isHost, nil
}

type stubGuests struct {
	ids []int64
	err error
}

func (s stubGuests) GuestIDsByDinner(ctx context.Context, dinnerID int64) ([]int64, error) {
	return s.ids, s.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func validInput() CreateInput {
	return CreateInput{
		HostID: 1, MenuID: 1, Name: "Couscous Night", Price: 35.5,
		StartTime: start, EndTime: end,
		Address:     "12 Rue Neuve, Lyon, ARA, 69002, France",
		CuisineType: "Moroccan", MaxGuestCount: 8,
	}
}

func newTestService(pub bus.Publisher, guests GuestListClient, now time.Time) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, pub, stubIdentity{isHost: true}, StubMenuClient{}, guests, nil, fixedClock(now))
	return svc, repo
}

func TestCreateEmitsDinnerCreated(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{}, start)

	d, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, d.Status)
	require.NotZero(t, d.ID)

	msgs := pub.byTopic(event.TopicDinnerCreated)
	require.Len(t, msgs, 1)

	var fact event.DinnerCreated
	require.NoError(t, event.Unmarshal(msgs[0].Body, &fact))
	assert.Equal(t, event.TypeDinnerCreated, fact.EventType)
	assert.Equal(t, d.ID, fact.Dinner.ID)
	assert.Equal(t, "Couscous Night", fact.Dinner.Name)
	assert.Equal(t, "UPCOMING", fact.Dinner.Status)
	assert.Equal(t, event.TypeDinnerCreated, msgs[0].Headers[bus.HeaderEventType])
}

func TestCreateRejectsNonHost(t *testing.T) {
	pub := &recordingPublisher{}
	repo := NewMemoryRepository()
	svc := NewService(repo, pub, stubIdentity{isHost: false}, StubMenuClient{}, stubGuests{}, nil, fixedClock(start))

	_, err := svc.Create(context.Background(), validInput())
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))
	assert.Empty(t, pub.messages)
}

func TestStartBeforeScheduledTimeFails(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{ids: []int64{5}}, start.Add(-time.Hour))

	d, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	err = svc.Start(context.Background(), d.ID)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))

	got, err := svc.ByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, got.Status)
	assert.Empty(t, pub.byTopic(event.TopicDinnerStarted))
}

func TestStartEmitsDinnerStartedWithGuestIDs(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{ids: []int64{1, 2, 3}}, start.Add(time.Minute))

	d, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background(), d.ID))

	got, err := svc.ByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)

	msgs := pub.byTopic(event.TopicDinnerStarted)
	require.Len(t, msgs, 1)
	var fact event.DinnerStarted
	require.NoError(t, event.Unmarshal(msgs[0].Body, &fact))
	assert.Equal(t, []int64{1, 2, 3}, fact.GuestIDs)
	assert.Equal(t, "IN_PROGRESS", fact.Dinner.Status)
}

func TestStartKeepsTransitionWhenGuestLookupFails(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{err: errors.New("reservation service down")}, start.Add(time.Minute))

	d, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background(), d.ID))

	got, err := svc.ByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status, "transition is kept")
	assert.Empty(t, pub.byTopic(event.TopicDinnerStarted), "fact is suppressed")
}

func TestCompleteEmitsDinnerCompleted(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{ids: []int64{7}}, start.Add(time.Minute))

	d, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background(), d.ID))
	require.NoError(t, svc.Complete(context.Background(), d.ID))

	got, err := svc.ByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	msgs := pub.byTopic(event.TopicDinnerCompleted)
	require.Len(t, msgs, 1)
	var fact event.DinnerCompleted
	require.NoError(t, event.Unmarshal(msgs[0].Body, &fact))
	assert.Equal(t, []int64{7}, fact.GuestIDs)
}

func TestCompleteRequiresInProgress(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{}, start.Add(time.Minute))

	d, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	err = svc.Complete(context.Background(), d.ID)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
	assert.Empty(t, pub.byTopic(event.TopicDinnerCompleted))
}

func TestRescheduleEmitsNoFact(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{}, start)

	d, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	published := len(pub.messages)

	require.NoError(t, svc.Reschedule(context.Background(), d.ID, start.Add(24*time.Hour), end.Add(24*time.Hour)))

	got, err := svc.ByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, got.Status)
	assert.Len(t, pub.messages, published, "reschedule publishes nothing")
}

func TestStartAllInMenuEmitsNoFacts(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{ids: []int64{1}}, start.Add(time.Minute))

	first, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	// Second dinner under the same menu has not reached its start time yet.
	later := validInput()
	later.StartTime = start.Add(2 * time.Hour)
	later.EndTime = end.Add(2 * time.Hour)
	second, err := svc.Create(context.Background(), later)
	require.NoError(t, err)

	published := len(pub.messages)
	started, err := svc.StartAllInMenu(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	gotFirst, _ := svc.ByID(context.Background(), first.ID)
	gotSecond, _ := svc.ByID(context.Background(), second.ID)
	assert.Equal(t, StatusInProgress, gotFirst.Status)
	assert.Equal(t, StatusUpcoming, gotSecond.Status)
	assert.Len(t, pub.messages, published, "batch start publishes no per-dinner facts")
}

func TestStartNotFound(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(pub, stubGuests{}, start)

	err := svc.Start(context.Background(), 404)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
