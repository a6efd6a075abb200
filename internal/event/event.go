// Package event defines the fact schema shared by every service. Each fact
// is an immutable record describing something that already happened and
// carries enough data for a downstream consumer to act without querying
// back the source service. All services import this package; no service
// keeps its own copy of a payload shape.
package event

import (
	"encoding/json"
	"time"
)

// SchemaVersion is stamped on every published message header so consumers
// can reject payloads they do not understand.
const SchemaVersion = "1"

// Topic names. Dead letters for a topic go to Topic + DLTSuffix.
const (
	TopicDinnerCreated       = "dinner.created"
	TopicDinnerUpdated       = "dinner.updated"
	TopicDinnerStarted       = "dinner.started"
	TopicDinnerCompleted     = "dinner.completed"
	TopicReservationCreated  = "reservation.created"
	TopicReservationCanceled = "reservation.canceled"
	TopicInvoiceCreated      = "invoice.created"
	TopicGuestCreated        = "user.guest.created"
	TopicHostCreated         = "user.host.created"
)

// DLTSuffix is appended to a topic name to form its dead-letter topic.
const DLTSuffix = ".DLT"

// Event type strings carried both inside the payload and in the
// "event-type" message header.
const (
	TypeDinnerCreated       = "DinnerCreated"
	TypeDinnerUpdated       = "DinnerUpdated"
	TypeDinnerStarted       = "DinnerStarted"
	TypeDinnerCompleted     = "DinnerCompleted"
	TypeReservationCreated  = "ReservationCreated"
	TypeReservationCanceled = "ReservationCanceled"
	TypeInvoiceCreated      = "InvoiceCreated"
	TypeGuestCreated        = "GuestCreated"
	TypeHostCreated         = "HostCreated"
)

// DinnerSnapshot is the full dinner state embedded in lifecycle facts.
type DinnerSnapshot struct {
	ID            int64     `json:"id"`
	HostID        int64     `json:"host_id"`
	MenuID        int64     `json:"menu_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Address       string    `json:"address"`
	CuisineType   string    `json:"cuisine_type"`
	MaxGuestCount int       `json:"max_guest_count"`
	ImageURL      string    `json:"image_url,omitempty"`
	Status        string    `json:"status"`
}

// DinnerCreated is published after a dinner is persisted for the first time.
type DinnerCreated struct {
	EventType      string         `json:"event_type"`
	EventTimestamp time.Time      `json:"event_timestamp"`
	Dinner         DinnerSnapshot `json:"dinner"`
}

// DinnerUpdated is published after an existing dinner's fields change.
type DinnerUpdated struct {
	EventType      string         `json:"event_type"`
	EventTimestamp time.Time      `json:"event_timestamp"`
	Dinner         DinnerSnapshot `json:"dinner"`
}

// DinnerStarted is published when a dinner transitions to IN_PROGRESS. It
// carries the guest ids reserved for the dinner so the notification service
// can fan out without calling back.
type DinnerStarted struct {
	EventType      string         `json:"event_type"`
	EventTimestamp time.Time      `json:"event_timestamp"`
	Dinner         DinnerSnapshot `json:"dinner"`
	GuestIDs       []int64        `json:"guest_ids"`
}

// DinnerCompleted is published when a dinner transitions to COMPLETED.
type DinnerCompleted struct {
	EventType      string         `json:"event_type"`
	EventTimestamp time.Time      `json:"event_timestamp"`
	Dinner         DinnerSnapshot `json:"dinner"`
	GuestIDs       []int64        `json:"guest_ids"`
}

// ReservationCreated is published after a reservation is persisted.
type ReservationCreated struct {
	EventType       string    `json:"event_type"`
	EventTimestamp  time.Time `json:"event_timestamp"`
	ReservationID   string    `json:"reservation_id"`
	DinnerID        int64     `json:"dinner_id"`
	GuestID         int64     `json:"guest_id"`
	ReservationTime time.Time `json:"reservation_time"`
	RestaurantName  string    `json:"restaurant_name"`
}

// ReservationCanceled is published before the reservation row is deleted.
type ReservationCanceled struct {
	EventType      string    `json:"event_type"`
	EventTimestamp time.Time `json:"event_timestamp"`
	ReservationID  string    `json:"reservation_id"`
	DinnerID       int64     `json:"dinner_id"`
	GuestID        int64     `json:"guest_id"`
}

// InvoiceCreated is published by the billing collaborator when an invoice
// is issued for a guest.
type InvoiceCreated struct {
	EventType      string    `json:"event_type"`
	EventTimestamp time.Time `json:"event_timestamp"`
	InvoiceID      string    `json:"invoice_id"`
	GuestID        int64     `json:"guest_id"`
	Amount         float64   `json:"amount"`
	InvoiceDate    time.Time `json:"invoice_date"`
}

// GuestCreated is published when a guest account is registered.
type GuestCreated struct {
	EventType      string    `json:"event_type"`
	EventTimestamp time.Time `json:"event_timestamp"`
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
}

// HostCreated is published when a host account is registered.
type HostCreated struct {
	EventType      string    `json:"event_type"`
	EventTimestamp time.Time `json:"event_timestamp"`
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
}

// Marshal serializes a fact payload as JSON.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a fact payload from JSON.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
