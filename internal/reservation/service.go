package reservation

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
)

// unknownRestaurant is used when the dinner projection has not caught up
// yet; the notification text degrades gracefully instead of blocking.
const unknownRestaurant = "Unknown Restaurant"

// Service creates and cancels reservations and emits reservation facts.
type Service struct {
	repo       Repository
	projection ProjectionStore
	publisher  bus.Publisher
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires the reservation service. A nil clock defaults to time.Now.
func NewService(repo Repository, projection ProjectionStore, publisher bus.Publisher,
	log *zap.Logger, now func() time.Time) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, projection: projection, publisher: publisher, log: log, now: now}
}

// Create generates a reservation id, persists the row and publishes
// ReservationCreated. The restaurant name is enriched from the dinner
// projection when the snapshot has arrived.
func (s *Service) Create(ctx context.Context, dinnerID, guestID int64) (*Reservation, error) {
	r := &Reservation{
		ID:              uuid.NewString(),
		DinnerID:        dinnerID,
		GuestID:         guestID,
		ReservationDate: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	restaurant := unknownRestaurant
	if snap, ok, err := s.projection.ByID(ctx, dinnerID); err == nil && ok {
		restaurant = snap.Name
	}

	payload := event.ReservationCreated{
		EventType:       event.TypeReservationCreated,
		EventTimestamp:  s.now().UTC(),
		ReservationID:   r.ID,
		DinnerID:        r.DinnerID,
		GuestID:         r.GuestID,
		ReservationTime: r.ReservationDate,
		RestaurantName:  restaurant,
	}
	s.publish(ctx, event.TopicReservationCreated, event.TypeReservationCreated, r.DinnerID, payload)

	s.log.Info("reservation created",
		zap.String("reservation_id", r.ID),
		zap.Int64("dinner_id", dinnerID),
		zap.Int64("guest_id", guestID))
	return r, nil
}

// Cancel publishes ReservationCanceled and then deletes the row. The fact
// goes out before the delete; a crash between the two leaves a stale row
// that a later cancel can clean up.
func (s *Service) Cancel(ctx context.Context, id string) error {
	r, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}

	payload := event.ReservationCanceled{
		EventType:      event.TypeReservationCanceled,
		EventTimestamp: s.now().UTC(),
		ReservationID:  r.ID,
		DinnerID:       r.DinnerID,
		GuestID:        r.GuestID,
	}
	s.publish(ctx, event.TopicReservationCanceled, event.TypeReservationCanceled, r.DinnerID, payload)

	return s.repo.Delete(ctx, id)
}

// ByID loads a reservation for the read surface.
func (s *Service) ByID(ctx context.Context, id string) (*Reservation, error) {
	return s.repo.ByID(ctx, id)
}

// ByGuest lists a guest's reservations.
func (s *Service) ByGuest(ctx context.Context, guestID int64) ([]*Reservation, error) {
	return s.repo.ByGuest(ctx, guestID)
}

// GuestIDsByDinner serves the dinner service's synchronous guest-list
// lookup. It reads live reservation rows, not the projection.
func (s *Service) GuestIDsByDinner(ctx context.Context, dinnerID int64) ([]int64, error) {
	return s.repo.GuestIDsByDinner(ctx, dinnerID)
}

// DinnerByID exposes the projection for enriching read responses.
func (s *Service) DinnerByID(ctx context.Context, dinnerID int64) (*DinnerSnapshot, bool, error) {
	return s.projection.ByID(ctx, dinnerID)
}

func (s *Service) publish(ctx context.Context, topic, eventType string, dinnerID int64, payload any) {
	body, err := event.Marshal(payload)
	if err != nil {
		s.log.Error("marshal fact failed", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	msg := bus.NewMessage(topic, strconv.FormatInt(dinnerID, 10), eventType, event.SchemaVersion, body)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Error("publish fact failed", zap.String("topic", topic), zap.Error(err))
	}
}
