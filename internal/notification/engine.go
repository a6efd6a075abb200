package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/bus"
	"github.com/buberdinner/dinner-marketplace/internal/event"
	"github.com/buberdinner/dinner-marketplace/internal/identity"
)

// Group is the consumer group all notification subscriptions run under.
const Group = "notification-group"

const timestampLayout = "Jan 02,2006 at 03:04 PM"

// Directory resolves recipients from the local identity projection.
type Directory interface {
	GuestByID(ctx context.Context, id int64) (*identity.Guest, bool, error)
	HostByID(ctx context.Context, id int64) (*identity.Host, bool, error)
}

// Engine turns upstream facts into notification records and attempts
// delivery. Reservation and invoice facts address a single guest and are
// sent immediately; dinner lifecycle facts fan out to the whole guest list
// and are left PENDING for the sweep.
type Engine struct {
	store     Store
	directory Directory
	sender    Sender
	dedup     Dedup
	log       *zap.Logger
	now       func() time.Time
}

// NewEngine builds the engine. A nil clock falls back to time.Now.
func NewEngine(store Store, directory Directory, sender Sender, dedup Dedup,
	log *zap.Logger, now func() time.Time) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if dedup == nil {
		dedup = NewMemoryDedup()
	}
	return &Engine{store: store, directory: directory, sender: sender,
		dedup: dedup, log: log, now: now}
}

// Register subscribes the engine to every topic it reacts to.
func (e *Engine) Register(sub bus.Subscriber) error {
	subs := []struct {
		topic   string
		handler bus.Handler
	}{
		{event.TopicReservationCreated, e.handleReservationCreated},
		{event.TopicReservationCanceled, e.handleReservationCanceled},
		{event.TopicInvoiceCreated, e.handleInvoiceCreated},
		{event.TopicDinnerStarted, e.handleDinnerStarted},
		{event.TopicDinnerCompleted, e.handleDinnerCompleted},
	}
	for _, s := range subs {
		if err := sub.Subscribe(s.topic, Group, s.handler); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleReservationCreated(ctx context.Context, msg bus.Message) error {
	return e.dedupOnce(ctx, msg, func(ctx context.Context) error {
		var fact event.ReservationCreated
		if err := event.Unmarshal(msg.Body, &fact); err != nil {
			return err
		}
		subject := "Reservation Confirmation"
		description := fmt.Sprintf("Your reservation at %s for %s is confirmed.",
			fact.RestaurantName, fact.ReservationTime.Format(timestampLayout))
		return e.notifyGuest(ctx, fact.GuestID, subject, description)
	})
}

func (e *Engine) handleReservationCanceled(ctx context.Context, msg bus.Message) error {
	return e.dedupOnce(ctx, msg, func(ctx context.Context) error {
		var fact event.ReservationCanceled
		if err := event.Unmarshal(msg.Body, &fact); err != nil {
			return err
		}
		subject := "Reservation Canceled"
		description := fmt.Sprintf("Your reservation %s has been canceled.", fact.ReservationID)
		return e.notifyGuest(ctx, fact.GuestID, subject, description)
	})
}

func (e *Engine) handleInvoiceCreated(ctx context.Context, msg bus.Message) error {
	return e.dedupOnce(ctx, msg, func(ctx context.Context) error {
		var fact event.InvoiceCreated
		if err := event.Unmarshal(msg.Body, &fact); err != nil {
			return err
		}
		subject := "Invoice Issued"
		description := fmt.Sprintf("Invoice %s for %.2f was issued on %s.",
			fact.InvoiceID, fact.Amount, fact.InvoiceDate.Format(timestampLayout))
		return e.notifyGuest(ctx, fact.GuestID, subject, description)
	})
}

func (e *Engine) handleDinnerStarted(ctx context.Context, msg bus.Message) error {
	return e.dedupOnce(ctx, msg, func(ctx context.Context) error {
		var fact event.DinnerStarted
		if err := event.Unmarshal(msg.Body, &fact); err != nil {
			return err
		}
		subject := "Dinner Started"
		description := fmt.Sprintf("Dinner %s has started.", fact.Dinner.Name)
		return e.fanOut(ctx, fact.GuestIDs, subject, description)
	})
}

func (e *Engine) handleDinnerCompleted(ctx context.Context, msg bus.Message) error {
	return e.dedupOnce(ctx, msg, func(ctx context.Context) error {
		var fact event.DinnerCompleted
		if err := event.Unmarshal(msg.Body, &fact); err != nil {
			return err
		}
		subject := "Dinner Concluded"
		description := fmt.Sprintf("Dinner %s has concluded. Thank you for joining.", fact.Dinner.Name)
		return e.fanOut(ctx, fact.GuestIDs, subject, description)
	})
}

// dedupOnce skips a message whose correlation id was already processed and
// marks the id only after fn succeeds, so failed handling stays retryable.
func (e *Engine) dedupOnce(ctx context.Context, msg bus.Message, fn func(ctx context.Context) error) error {
	correlationID := msg.Headers[bus.HeaderCorrelationID]
	if correlationID != "" {
		seen, err := e.dedup.Seen(ctx, correlationID)
		if err != nil {
			return err
		}
		if seen {
			e.log.Debug("duplicate delivery skipped",
				zap.String("topic", msg.Topic),
				zap.String("correlation_id", correlationID))
			return nil
		}
	}
	if err := fn(ctx); err != nil {
		return err
	}
	if correlationID != "" {
		return e.dedup.Mark(ctx, correlationID)
	}
	return nil
}

// notifyGuest builds an EMAIL notification for a single guest, persists it
// and attempts delivery right away. An unknown guest is a handler error:
// the identity projection is expected to be ahead of reservation traffic,
// so the message is retried and eventually dead-lettered.
func (e *Engine) notifyGuest(ctx context.Context, guestID int64, subject, description string) error {
	guest, ok, err := e.directory.GuestByID(ctx, guestID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "guest %d not in identity projection", guestID)
	}
	n := New(guestID, guest.Email, subject, description, ChannelEmail, UserTypeGuest, e.now())
	if err := e.store.Save(ctx, n); err != nil {
		return err
	}
	_, err = e.sendAndMark(ctx, n)
	return err
}

// fanOut creates one PENDING IN_APP notification per guest. Guests missing
// from the projection are skipped with a warning rather than failing the
// whole batch; delivery is left to the sweep.
func (e *Engine) fanOut(ctx context.Context, guestIDs []int64, subject, description string) error {
	for _, id := range guestIDs {
		guest, ok, err := e.directory.GuestByID(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			e.log.Warn("guest not in identity projection, skipping",
				zap.Int64("guest_id", id))
			continue
		}
		n := New(id, guest.Email, subject, description, ChannelInApp, UserTypeGuest, e.now())
		if err := e.store.Save(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// SendImmediate creates and delivers a notification on behalf of the HTTP
// API. The recipient type is resolved from the projection; callers outside
// the known population are recorded as UNKNOWN rather than rejected.
func (e *Engine) SendImmediate(ctx context.Context, userID int64, email, subject, description string, channel Channel) (Notification, error) {
	userType, err := e.resolveUserType(ctx, userID)
	if err != nil {
		return Notification{}, err
	}
	n := New(userID, email, subject, description, channel, userType, e.now())
	if err := e.store.Save(ctx, n); err != nil {
		return Notification{}, err
	}
	return e.sendAndMark(ctx, n)
}

func (e *Engine) resolveUserType(ctx context.Context, userID int64) (UserType, error) {
	if _, ok, err := e.directory.GuestByID(ctx, userID); err != nil {
		return "", err
	} else if ok {
		return UserTypeGuest, nil
	}
	if _, ok, err := e.directory.HostByID(ctx, userID); err != nil {
		return "", err
	} else if ok {
		return UserTypeHost, nil
	}
	return UserTypeUnknown, nil
}

// sendAndMark attempts delivery and records the outcome, returning the
// record in its final state. A delivery failure is absorbed: the record
// flips to FAILED and the caller's message still commits. Only store
// failures propagate.
func (e *Engine) sendAndMark(ctx context.Context, n Notification) (Notification, error) {
	if !n.IsReadyToSend() {
		failed := n.MarkFailed()
		return failed, e.store.Save(ctx, failed)
	}
	if err := e.sender.Send(ctx, n); err != nil {
		e.log.Warn("notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", string(n.Channel)),
			zap.Error(err))
		failed := n.MarkFailed()
		return failed, e.store.Save(ctx, failed)
	}
	sent := n.MarkSent()
	return sent, e.store.Save(ctx, sent)
}

// Sweep reloads every PENDING notification, oldest first, and attempts
// delivery for each. FAILED records are terminal and never revisited.
func (e *Engine) Sweep(ctx context.Context) error {
	pending, err := e.store.Pending(ctx)
	if err != nil {
		return err
	}
	for _, n := range pending {
		if _, err := e.sendAndMark(ctx, n); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		e.log.Info("sweep processed pending notifications", zap.Int("count", len(pending)))
	}
	return nil
}

// ByUser lists a user's notifications for the HTTP API.
func (e *Engine) ByUser(ctx context.Context, userID int64) ([]Notification, error) {
	return e.store.ByUser(ctx, userID)
}
