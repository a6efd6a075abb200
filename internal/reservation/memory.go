package reservation

import (
	"context"
	"sort"
	"sync"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// MemoryRepository is an in-process Repository used by tests and local runs.
type MemoryRepository struct {
	mu           sync.RWMutex
	reservations map[string]Reservation
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reservations: make(map[string]Reservation)}
}

func (r *MemoryRepository) Create(ctx context.Context, res *Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[res.ID] = *res
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[id]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	delete(r.reservations, id)
	return nil
}

func (r *MemoryRepository) ByID(ctx context.Context, id string) (*Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	copied := res
	return &copied, nil
}

func (r *MemoryRepository) ByGuest(ctx context.Context, guestID int64) ([]*Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Reservation
	for _, res := range r.reservations {
		if res.GuestID == guestID {
			copied := res
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationDate.Before(out[j].ReservationDate) })
	return out, nil
}

func (r *MemoryRepository) GuestIDsByDinner(ctx context.Context, dinnerID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []Reservation
	for _, res := range r.reservations {
		if res.DinnerID == dinnerID {
			matched = append(matched, res)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ReservationDate.Before(matched[j].ReservationDate)
	})
	ids := make([]int64, 0, len(matched))
	for _, res := range matched {
		ids = append(ids, res.GuestID)
	}
	return ids, nil
}

// MemoryProjectionStore is an in-process ProjectionStore.
type MemoryProjectionStore struct {
	mu    sync.RWMutex
	snaps map[int64]DinnerSnapshot
}

// NewMemoryProjectionStore builds an empty in-memory projection store.
func NewMemoryProjectionStore() *MemoryProjectionStore {
	return &MemoryProjectionStore{snaps: make(map[int64]DinnerSnapshot)}
}

func (s *MemoryProjectionStore) Upsert(ctx context.Context, snap DinnerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.ID] = snap
	return nil
}

func (s *MemoryProjectionStore) ByID(ctx context.Context, dinnerID int64) (*DinnerSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[dinnerID]
	if !ok {
		return nil, false, nil
	}
	copied := snap
	return &copied, true, nil
}
