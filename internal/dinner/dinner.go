// Package dinner owns the Dinner aggregate and its lifecycle. The aggregate
// is pure data plus transition rules; publishing facts is the service
// layer's job, never the entity's.
package dinner

import (
	"strings"
	"time"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/event"
)

// Status is the lifecycle state of a dinner.
//
// Allowed transitions:
//
//	UPCOMING    -> IN_PROGRESS (start)
//	UPCOMING    -> RESCHEDULED (reschedule)
//	RESCHEDULED -> IN_PROGRESS (start)
//	IN_PROGRESS -> COMPLETED   (complete)
//
// COMPLETED is terminal. Any other requested transition fails and leaves
// the state unchanged.
type Status string

const (
	StatusUpcoming    Status = "UPCOMING"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusCompleted   Status = "COMPLETED"
	StatusRescheduled Status = "RESCHEDULED"
)

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusUpcoming, StatusInProgress, StatusCompleted, StatusRescheduled:
		return Status(s), nil
	}
	return "", apperr.Newf(apperr.CodeInvalid, "unknown dinner status %q", s)
}

// Dinner is the aggregate root. It is created once per booking, never hard
// deleted, only transitioned.
type Dinner struct {
	ID            int64
	HostID        int64
	MenuID        int64
	Name          string
	Description   string
	Price         float64
	TimeRange     TimeRange
	Address       Address
	CuisineType   string
	MaxGuestCount int
	ImageURL      string
	Status        Status
}

// New validates and builds a dinner in the UPCOMING state. Every validation
// failure is reported; none is persisted.
func New(hostID, menuID int64, name, description string, price float64,
	start, end time.Time, address, cuisineType string, maxGuestCount int, imageURL string) (*Dinner, error) {

	var problems []string
	if hostID <= 0 {
		problems = append(problems, "host id must be positive")
	}
	if menuID <= 0 {
		problems = append(problems, "menu id must be positive")
	}
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "name is required")
	}
	if price < 0 {
		problems = append(problems, "price cannot be negative")
	}
	tr, err := NewTimeRange(start, end)
	if err != nil {
		problems = append(problems, err.Error())
	}
	addr, err := ParseAddress(address)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(cuisineType) == "" {
		problems = append(problems, "cuisine type is required")
	}
	if maxGuestCount < 0 {
		problems = append(problems, "maximum guest count cannot be negative")
	}
	if len(problems) > 0 {
		return nil, apperr.New(apperr.CodeInvalid, strings.Join(problems, "; "))
	}

	return &Dinner{
		HostID:        hostID,
		MenuID:        menuID,
		Name:          name,
		Description:   description,
		Price:         price,
		TimeRange:     tr,
		Address:       addr,
		CuisineType:   cuisineType,
		MaxGuestCount: maxGuestCount,
		ImageURL:      imageURL,
		Status:        StatusUpcoming,
	}, nil
}

// Hydrate rebuilds an aggregate from persisted state. The stored status is
// accepted as a parameter; there is no reflective backdoor around the
// constructor.
func Hydrate(id, hostID, menuID int64, name, description string, price float64,
	tr TimeRange, addr Address, cuisineType string, maxGuestCount int, imageURL string, status Status) *Dinner {

	return &Dinner{
		ID:            id,
		HostID:        hostID,
		MenuID:        menuID,
		Name:          name,
		Description:   description,
		Price:         price,
		TimeRange:     tr,
		Address:       addr,
		CuisineType:   cuisineType,
		MaxGuestCount: maxGuestCount,
		ImageURL:      imageURL,
		Status:        status,
	}
}

// Reschedule moves the dinner to a new time range and marks it RESCHEDULED.
// A completed dinner cannot be rescheduled.
func (d *Dinner) Reschedule(newStart, newEnd time.Time) error {
	if d.Status == StatusCompleted {
		return apperr.New(apperr.CodeInvalidTransition, "cannot reschedule a completed dinner")
	}
	tr, err := NewTimeRange(newStart, newEnd)
	if err != nil {
		return err
	}
	d.TimeRange = tr
	d.Status = StatusRescheduled
	return nil
}

// Start transitions the dinner to IN_PROGRESS. Only upcoming or rescheduled
// dinners can be started.
func (d *Dinner) Start() error {
	if d.Status != StatusUpcoming && d.Status != StatusRescheduled {
		return apperr.Newf(apperr.CodeInvalidTransition,
			"only upcoming or rescheduled dinners can be started, status is %s", d.Status)
	}
	d.Status = StatusInProgress
	return nil
}

// Complete transitions the dinner to COMPLETED.
func (d *Dinner) Complete() error {
	if d.Status != StatusInProgress {
		return apperr.Newf(apperr.CodeInvalidTransition,
			"only in-progress dinners can be completed, status is %s", d.Status)
	}
	d.Status = StatusCompleted
	return nil
}

// Snapshot returns the full wire representation embedded in lifecycle facts.
func (d *Dinner) Snapshot() event.DinnerSnapshot {
	return event.DinnerSnapshot{
		ID:            d.ID,
		HostID:        d.HostID,
		MenuID:        d.MenuID,
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		StartTime:     d.TimeRange.Start,
		EndTime:       d.TimeRange.End,
		Address:       d.Address.Format(),
		CuisineType:   d.CuisineType,
		MaxGuestCount: d.MaxGuestCount,
		ImageURL:      d.ImageURL,
		Status:        string(d.Status),
	}
}
