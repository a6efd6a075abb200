package user

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
	"github.com/buberdinner/dinner-marketplace/internal/utils"
)

// Service registers and authenticates accounts. A registration is only
// announced after the row is committed; a publish failure is logged and the
// account still exists, so projections converge on the next registration or
// a manual replay.
type Service struct {
	repo       Repository
	publisher  bus.Publisher
	jwtSecret  string
	ttlMin     int
	bcryptCost int
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires the user service. A nil clock defaults to time.Now.
func NewService(repo Repository, publisher bus.Publisher, jwtSecret string,
	ttlMin, bcryptCost int, log *zap.Logger, now func() time.Time) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:       repo,
		publisher:  publisher,
		jwtSecret:  jwtSecret,
		ttlMin:     ttlMin,
		bcryptCost: bcryptCost,
		log:        log,
		now:        now,
	}
}

// AuthResult is returned from Register and Login.
type AuthResult struct {
	User  User
	Token utils.AccessToken
}

// Register creates an account, publishes the matching creation fact and
// issues an access token.
func (s *Service) Register(ctx context.Context, name, email, password string, role Role) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, apperr.New(apperr.CodeInvalid, "name and a valid email are required")
	}
	if len(password) < 8 {
		return nil, apperr.New(apperr.CodeInvalid, "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.publishCreated(ctx, u)

	token, err := utils.NewAccessToken(s.jwtSecret, u.ID, string(u.Role), s.ttlMin)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered",
		zap.Int64("user_id", u.ID),
		zap.String("role", string(u.Role)))
	return &AuthResult{User: *u, Token: token}, nil
}

// Login verifies credentials and issues an access token. Both a missing
// account and a wrong password report UNAUTHORIZED so the response does not
// leak which emails are registered.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.repo.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	token, err := utils.NewAccessToken(s.jwtSecret, u.ID, string(u.Role), s.ttlMin)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: *u, Token: token}, nil
}

// ByID loads an account.
func (s *Service) ByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.ByID(ctx, id)
}

// Exists reports whether an account with the id is registered.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.ByID(ctx, id)
	if apperr.Is(err, apperr.CodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsHost reports whether the account exists and has the HOST role. The
// dinner service calls this before booking a dinner.
func (s *Service) IsHost(ctx context.Context, id int64) (bool, error) {
	u, err := s.repo.ByID(ctx, id)
	if apperr.Is(err, apperr.CodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Role == RoleHost, nil
}

func (s *Service) publishCreated(ctx context.Context, u *User) {
	var (
		topic     string
		eventType string
		payload   any
	)
	switch u.Role {
	case RoleHost:
		topic, eventType = event.TopicHostCreated, event.TypeHostCreated
		payload = event.HostCreated{
			EventType: eventType, EventTimestamp: s.now().UTC(),
			ID: u.ID, Name: u.Name, Email: u.Email,
		}
	default:
		topic, eventType = event.TopicGuestCreated, event.TypeGuestCreated
		payload = event.GuestCreated{
			EventType: eventType, EventTimestamp: s.now().UTC(),
			ID: u.ID, Name: u.Name, Email: u.Email,
		}
	}
	body, err := event.Marshal(payload)
	if err != nil {
		s.log.Error("marshal fact failed", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	msg := bus.NewMessage(topic, formatID(u.ID), eventType, event.SchemaVersion, body)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Error("publish fact failed",
			zap.String("topic", topic),
			zap.Int64("user_id", u.ID),
			zap.Error(err))
	}
}
