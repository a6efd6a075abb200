// Package identity maintains local lookup copies of guest and host contact
// data for the notification service. The projection is fed exclusively by
// GuestCreated/HostCreated facts; upserts are idempotent last-write-wins.
package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
)

// Guest is the local copy of a guest account.
type Guest struct {
	ID    int64
	Name  string
	Email string
}

// Host is the local copy of a host account.
type Host struct {
	ID    int64
	Name  string
	Email string
}

// Store persists the projection. Lookups report ok=false when the record
// has not arrived yet.
type Store interface {
	UpsertGuest(ctx context.Context, g Guest) error
	UpsertHost(ctx context.Context, h Host) error
	GuestByID(ctx context.Context, id int64) (*Guest, bool, error)
	HostByID(ctx context.Context, id int64) (*Host, bool, error)
}

// Projector consumes identity-creation facts.
type Projector struct {
	store Store
	log   *zap.Logger
}

// NewProjector builds the projector.
func NewProjector(store Store, log *zap.Logger) *Projector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Projector{store: store, log: log}
}

// Register subscribes the projector to the identity topics under the given
// consumer group.
func (p *Projector) Register(sub bus.Subscriber, group string) error {
	if err := sub.Subscribe(event.TopicGuestCreated, group, p.handleGuestCreated); err != nil {
		return err
	}
	return sub.Subscribe(event.TopicHostCreated, group, p.handleHostCreated)
}

func (p *Projector) handleGuestCreated(ctx context.Context, msg bus.Message) error {
	var fact event.GuestCreated
	if err := event.Unmarshal(msg.Body, &fact); err != nil {
		return err
	}
	if err := p.store.UpsertGuest(ctx, Guest{ID: fact.ID, Name: fact.Name, Email: fact.Email}); err != nil {
		return err
	}
	p.log.Info("guest projected", zap.Int64("guest_id", fact.ID))
	return nil
}

func (p *Projector) handleHostCreated(ctx context.Context, msg bus.Message) error {
	var fact event.HostCreated
	if err := event.Unmarshal(msg.Body, &fact); err != nil {
		return err
	}
	if err := p.store.UpsertHost(ctx, Host{ID: fact.ID, Name: fact.Name, Email: fact.Email}); err != nil {
		return err
	}
	p.log.Info("host projected", zap.Int64("host_id", fact.ID))
	return nil
}
