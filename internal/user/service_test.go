package user

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
	"github.com/buberdinner/dinner-marketplace/internal/utils"
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

func newTestService() (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	// bcrypt.MinCost keeps the hashing fast in tests
	svc := NewService(NewMemoryRepository(), pub, "test-secret", 15, 4, nil,
		func() time.Time { return testNow })
	return svc, pub
}

func TestRegisterGuestPublishesGuestCreated(t *testing.T) {
	svc, pub := newTestService()

	res, err := svc.Register(context.Background(), "Nadia", "Nadia@Example.com", "s3cret-pass", RoleGuest)
	require.NoError(t, err)
	assert.Equal(t, "nadia@example.com", res.User.Email, "email is normalized")
	assert.NotEmpty(t, res.Token.Token)

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, event.TopicGuestCreated, msg.Topic)

	var fact event.GuestCreated
	require.NoError(t, event.Unmarshal(msg.Body, &fact))
	assert.Equal(t, res.User.ID, fact.ID)
	assert.Equal(t, "nadia@example.com", fact.Email)
}

func TestRegisterHostPublishesHostCreated(t *testing.T) {
	svc, pub := newTestService()

	res, err := svc.Register(context.Background(), "Amina", "amina@example.com", "s3cret-pass", RoleHost)
	require.NoError(t, err)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, event.TopicHostCreated, pub.messages[0].Topic)

	isHost, err := svc.IsHost(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.True(t, isHost)
}

func TestRegisterValidation(t *testing.T) {
	svc, pub := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@example.com", "s3cret-pass", RoleGuest)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))

	_, err = svc.Register(ctx, "Nadia", "not-an-email", "s3cret-pass", RoleGuest)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))

	_, err = svc.Register(ctx, "Nadia", "a@example.com", "short", RoleGuest)
	assert.True(t, apperr.Is(err, apperr.CodeInvalid))

	assert.Empty(t, pub.messages, "no fact for a rejected registration")
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Nadia", "nadia@example.com", "s3cret-pass", RoleGuest)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "nadia@example.com", "s3cret-pass", RoleGuest)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Nadia", "nadia@example.com", "s3cret-pass", RoleGuest)
	require.NoError(t, err)

	res, err := svc.Login(ctx, "nadia@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token.Token)

	claims, err := utils.ParseAccessToken("test-secret", res.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "GUEST", claims.Role)

	_, err = svc.Login(ctx, "nadia@example.com", "wrong-pass")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized),
		"unknown email reports the same error as a wrong password")
}

func TestExistsAndIsHost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	guest, err := svc.Register(ctx, "Nadia", "nadia@example.com", "s3cret-pass", RoleGuest)
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, guest.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	isHost, err := svc.IsHost(ctx, guest.User.ID)
	require.NoError(t, err)
	assert.False(t, isHost, "guests are not hosts")

	isHost, err = svc.IsHost(ctx, 999)
	require.NoError(t, err)
	assert.False(t, isHost)
}
