// Package reservation owns reservations and a denormalized, non-authoritative
// read projection of dinners maintained from lifecycle facts.
package reservation

import (
	"context"
	"time"
)

// Reservation records a guest's booking for a dinner. It is immutable
// between creation and cancellation; cancellation removes the row.
type Reservation struct {
	ID              string    // globally unique
	DinnerID        int64
	GuestID         int64
	ReservationDate time.Time
}

// Repository persists reservations. ByID returns apperr.CodeNotFound when
// no row exists.
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, id string) error
	ByID(ctx context.Context, id string) (*Reservation, error)
	ByGuest(ctx context.Context, guestID int64) ([]*Reservation, error)
	GuestIDsByDinner(ctx context.Context, dinnerID int64) ([]int64, error)
}

// DinnerSnapshot is the read-only projection of a dinner kept locally for
// enriching reservation responses. It may lag behind or be missing and is
// never used for authoritative decisions.
type DinnerSnapshot struct {
	ID            int64
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
	Status        string
}

// ProjectionStore holds the dinner snapshots. Upserts are last-write-wins
// so redelivered facts are harmless.
type ProjectionStore interface {
	Upsert(ctx context.Context, snap DinnerSnapshot) error
	ByID(ctx context.Context, dinnerID int64) (*DinnerSnapshot, bool, error)
}
