// Package notification materializes pending notification records from
// upstream facts, attempts delivery, and retries undelivered work on a
// periodic sweep. Records are an audit trail and are never deleted.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery channel of a notification.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelPush  Channel = "PUSH"
	ChannelInApp Channel = "IN_APP"
)

// ParseChannel validates a channel string.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelEmail, ChannelPush, ChannelInApp:
		return Channel(s), true
	}
	return "", false
}

// UserType distinguishes the recipient kind.
type UserType string

const (
	UserTypeGuest   UserType = "GUEST"
	UserTypeHost    UserType = "HOST"
	UserTypeUnknown UserType = "UNKNOWN"
)

// Status is the delivery state of a notification. Status is mutated only
// by send attempts.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Notification is one message addressed to a human recipient.
type Notification struct {
	ID          string
	UserID      int64
	UserType    UserType
	Email       string
	Subject     string
	Description string
	CreatedAt   time.Time
	DeleteAt    *time.Time
	Channel     Channel
	Status      Status
}

// New builds a PENDING notification with a fresh id.
func New(userID int64, email, subject, description string,
	channel Channel, userType UserType, now time.Time) Notification {
	return Notification{
		ID:          uuid.NewString(),
		UserID:      userID,
		UserType:    userType,
		Email:       email,
		Subject:     subject,
		Description: description,
		CreatedAt:   now,
		Channel:     channel,
		Status:      StatusPending,
	}
}

// IsReadyToSend reports whether a send attempt may be made: the email must
// be non-empty and the status PENDING.
func (n Notification) IsReadyToSend() bool {
	return n.Email != "" && n.Status == StatusPending
}

// MarkSent returns a copy with status SENT.
func (n Notification) MarkSent() Notification {
	n.Status = StatusSent
	return n
}

// MarkFailed returns a copy with status FAILED.
func (n Notification) MarkFailed() Notification {
	n.Status = StatusFailed
	return n
}
