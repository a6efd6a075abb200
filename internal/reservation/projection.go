package reservation

import (
	"context"

	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
)

// Group is the consumer group this service joins on the bus.
const Group = "reservation-group"

// DinnerProjector consumes dinner lifecycle facts and upserts the local
// read-only snapshot. Upserts are idempotent, so redelivery is safe.
type DinnerProjector struct {
	store ProjectionStore
	log   *zap.Logger
}

// NewDinnerProjector builds the projector.
func NewDinnerProjector(store ProjectionStore, log *zap.Logger) *DinnerProjector {
	if log == nil {
		log = zap.NewNop()
	}
	return &DinnerProjector{store: store, log: log}
}

// Register subscribes the projector to the dinner topics.
func (p *DinnerProjector) Register(sub bus.Subscriber) error {
	if err := sub.Subscribe(event.TopicDinnerCreated, Group, p.handleCreated); err != nil {
		return err
	}
	return sub.Subscribe(event.TopicDinnerUpdated, Group, p.handleUpdated)
}

func (p *DinnerProjector) handleCreated(ctx context.Context, msg bus.Message) error {
	var fact event.DinnerCreated
	if err := event.Unmarshal(msg.Body, &fact); err != nil {
		return err
	}
	return p.apply(ctx, fact.Dinner)
}

func (p *DinnerProjector) handleUpdated(ctx context.Context, msg bus.Message) error {
	var fact event.DinnerUpdated
	if err := event.Unmarshal(msg.Body, &fact); err != nil {
		return err
	}
	return p.apply(ctx, fact.Dinner)
}

func (p *DinnerProjector) apply(ctx context.Context, snap event.DinnerSnapshot) error {
	err := p.store.Upsert(ctx, DinnerSnapshot{
		ID:            snap.ID,
		HostID:        snap.HostID,
		MenuID:        snap.MenuID,
		Name:          snap.Name,
		Description:   snap.Description,
		Price:         snap.Price,
		StartTime:     snap.StartTime,
		EndTime:       snap.EndTime,
		Address:       snap.Address,
		CuisineType:   snap.CuisineType,
		MaxGuestCount: snap.MaxGuestCount,
		Status:        snap.Status,
	})
	if err != nil {
		return err
	}
	p.log.Debug("dinner snapshot upserted", zap.Int64("dinner_id", snap.ID))
	return nil
}
