package dinner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
)

// IdentityClient checks accounts against the identity service.
type IdentityClient interface {
	IsHost(ctx context.Context, userID int64) (bool, error)
}

// MenuClient checks menus against the menu catalogue.
type MenuClient interface {
	MenuExists(ctx context.Context, menuID int64) (bool, error)
}

// GuestListClient fetches the guest ids reserved for a dinner from the
// reservation service. The call is synchronous and reads live reservation
// rows, not a projection.
type GuestListClient interface {
	GuestIDsByDinner(ctx context.Context, dinnerID int64) ([]int64, error)
}

// Service executes dinner lifecycle commands. Facts are published after the
// repository write succeeds; the aggregate itself never touches the bus.
type Service struct {
	repo      Repository
	publisher bus.Publisher
	identity  IdentityClient
	menus     MenuClient
	guests    GuestListClient
	log       *zap.Logger
	now       func() time.Time
}

// NewService wires the lifecycle service. A nil clock defaults to time.Now.
func NewService(repo Repository, publisher bus.Publisher, identity IdentityClient,
	menus MenuClient, guests GuestListClient, log *zap.Logger, now func() time.Time) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		identity:  identity,
		menus:     menus,
		guests:    guests,
		log:       log,
		now:       now,
	}
}

// CreateInput carries the fields needed to book a new dinner.
type CreateInput struct {
	HostID        int64
	MenuID        int64
	Name          string
	Description   string
	Price         float64
	StartTime     time.Time
	EndTime       time.Time
	Address       string
	CuisineType   string
	MaxGuestCount int
	ImageURL      string
}

// Create validates the request, persists the dinner and emits DinnerCreated
// with a full snapshot. A publish failure does not undo the booking; it is
// logged and the caller still gets the created dinner.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Dinner, error) {
	isHost, err := s.identity.IsHost(ctx, in.HostID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "identity lookup failed", err)
	}
	if !isHost {
		return nil, apperr.New(apperr.CodeInvalid, "host does not exist or is not a host")
	}
	menuOK, err := s.menus.MenuExists(ctx, in.MenuID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "menu lookup failed", err)
	}
	if !menuOK {
		return nil, apperr.New(apperr.CodeInvalid, "menu does not exist")
	}

	d, err := New(in.HostID, in.MenuID, in.Name, in.Description, in.Price,
		in.StartTime, in.EndTime, in.Address, in.CuisineType, in.MaxGuestCount, in.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.publishSnapshot(ctx, event.TopicDinnerCreated, event.TypeDinnerCreated, d)
	s.log.Info("dinner created", zap.Int64("dinner_id", d.ID), zap.Int64("host_id", d.HostID))
	return d, nil
}

// Update replaces the mutable fields of an existing dinner, revalidates and
// emits DinnerUpdated so projections converge.
func (s *Service) Update(ctx context.Context, id int64, in CreateInput) (*Dinner, error) {
	existing, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := New(in.HostID, in.MenuID, in.Name, in.Description, in.Price,
		in.StartTime, in.EndTime, in.Address, in.CuisineType, in.MaxGuestCount, in.ImageURL)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.Status = existing.Status

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}
	s.publishSnapshot(ctx, event.TopicDinnerUpdated, event.TypeDinnerUpdated, updated)
	return updated, nil
}

// Reschedule moves the dinner to a new window. Rescheduling emits no fact;
// downstream projections keep the old window until the next DinnerUpdated.
func (s *Service) Reschedule(ctx context.Context, id int64, newStart, newEnd time.Time) error {
	d, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := d.Reschedule(newStart, newEnd); err != nil {
		return err
	}
	return s.repo.Update(ctx, d)
}

// Start transitions the dinner to IN_PROGRESS, then fetches the guest list
// from the reservation service and emits DinnerStarted. When the lookup or
// the publish fails the transition is kept and the fact is dropped with an
// error log; there is no retry.
func (s *Service) Start(ctx context.Context, id int64) error {
	d, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if s.now().Before(d.TimeRange.Start) {
		return apperr.New(apperr.CodeInvalidTransition, "dinner cannot start before its scheduled time")
	}
	if err := d.Start(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}

	guestIDs, err := s.guests.GuestIDsByDinner(ctx, d.ID)
	if err != nil {
		s.log.Error("guest list fetch failed, DinnerStarted not published",
			zap.Int64("dinner_id", d.ID), zap.Error(err))
		return nil
	}

	payload := event.DinnerStarted{
		EventType:      event.TypeDinnerStarted,
		EventTimestamp: s.now().UTC(),
		Dinner:         d.Snapshot(),
		GuestIDs:       guestIDs,
	}
	s.publish(ctx, event.TopicDinnerStarted, event.TypeDinnerStarted, d.ID, payload)
	return nil
}

// Complete transitions the dinner to COMPLETED and emits DinnerCompleted.
// The guest list is fetched best-effort for fan-out; on lookup failure the
// fact goes out with an empty list.
func (s *Service) Complete(ctx context.Context, id int64) error {
	d, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := d.Complete(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}

	guestIDs, err := s.guests.GuestIDsByDinner(ctx, d.ID)
	if err != nil {
		s.log.Warn("guest list fetch failed, DinnerCompleted published without guests",
			zap.Int64("dinner_id", d.ID), zap.Error(err))
		guestIDs = nil
	}

	payload := event.DinnerCompleted{
		EventType:      event.TypeDinnerCompleted,
		EventTimestamp: s.now().UTC(),
		Dinner:         d.Snapshot(),
		GuestIDs:       guestIDs,
	}
	s.publish(ctx, event.TopicDinnerCompleted, event.TypeDinnerCompleted, d.ID, payload)
	return nil
}

// StartAllInMenu transitions every UPCOMING dinner under the menu whose
// start time has passed to IN_PROGRESS. Unlike Start, the batch path emits
// no per-dinner facts. Returns the number of dinners started.
func (s *Service) StartAllInMenu(ctx context.Context, menuID int64) (int, error) {
	dinners, err := s.repo.ByMenuAndStatus(ctx, menuID, StatusUpcoming)
	if err != nil {
		return 0, err
	}
	started := 0
	now := s.now()
	for _, d := range dinners {
		if now.Before(d.TimeRange.Start) {
			continue
		}
		if err := d.Start(); err != nil {
			continue
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return started, err
		}
		started++
	}
	return started, nil
}

// ByID loads a dinner for the read surface.
func (s *Service) ByID(ctx context.Context, id int64) (*Dinner, error) {
	return s.repo.ByID(ctx, id)
}

// ByHost lists dinners hosted by a user.
func (s *Service) ByHost(ctx context.Context, hostID int64) ([]*Dinner, error) {
	return s.repo.ByHost(ctx, hostID)
}

// All lists every dinner.
func (s *Service) All(ctx context.Context) ([]*Dinner, error) {
	return s.repo.All(ctx)
}

func (s *Service) publishSnapshot(ctx context.Context, topic, eventType string, d *Dinner) {
	switch eventType {
	case event.TypeDinnerCreated:
		s.publish(ctx, topic, eventType, d.ID, event.DinnerCreated{
			EventType:      eventType,
			EventTimestamp: s.now().UTC(),
			Dinner:         d.Snapshot(),
		})
	case event.TypeDinnerUpdated:
		s.publish(ctx, topic, eventType, d.ID, event.DinnerUpdated{
			EventType:      eventType,
			EventTimestamp: s.now().UTC(),
			Dinner:         d.Snapshot(),
		})
	}
}

func (s *Service) publish(ctx context.Context, topic, eventType string, dinnerID int64, payload any) {
	body, err := event.Marshal(payload)
	if err != nil {
		s.log.Error("marshal fact failed", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	msg := bus.NewMessage(topic, formatID(dinnerID), eventType, event.SchemaVersion, body)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Error("publish fact failed",
			zap.String("topic", topic),
			zap.Int64("dinner_id", dinnerID),
			zap.Error(err))
	}
}
