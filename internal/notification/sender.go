package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// Sender delivers one notification over its channel. A returned error means
// the attempt failed and the record should be marked FAILED.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Router dispatches each notification to the sender registered for its
// channel.
type Router struct {
	senders map[Channel]Sender
}

// NewRouter builds a router over the given channel senders.
func NewRouter(senders map[Channel]Sender) *Router {
	return &Router{senders: senders}
}

func (r *Router) Send(ctx context.Context, n Notification) error {
	s, ok := r.senders[n.Channel]
	if !ok {
		return apperr.Newf(apperr.CodeDeliveryFailed, "no sender for channel %s", n.Channel)
	}
	return s.Send(ctx, n)
}

// LogSender writes the notification to the log instead of an external
// gateway. It stands in for the SMTP and push providers in local runs.
type LogSender struct {
	channel Channel
	log     *zap.Logger
}

// NewLogSender builds a logging sender for one channel.
func NewLogSender(channel Channel, log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{channel: channel, log: log}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.log.Info("notification delivered",
		zap.String("channel", string(s.channel)),
		zap.String("notification_id", n.ID),
		zap.Int64("user_id", n.UserID),
		zap.String("email", n.Email),
		zap.String("subject", n.Subject))
	return nil
}

// DefaultSenders wires a logging sender for each supported channel.
func DefaultSenders(log *zap.Logger) *Router {
	return NewRouter(map[Channel]Sender{
		ChannelEmail: NewLogSender(ChannelEmail, log),
		ChannelPush:  NewLogSender(ChannelPush, log),
		ChannelInApp: NewLogSender(ChannelInApp, log),
	})
}
