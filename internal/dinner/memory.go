package dinner

import (
	"context"
	"sort"
	"sync"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// MemoryRepository is an in-process Repository used by tests and local
// single-binary runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	dinners map[int64]Dinner
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, dinners: make(map[int64]Dinner)}
}

func (r *MemoryRepository) Create(ctx context.Context, d *Dinner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = r.nextID
	r.nextID++
	r.dinners[d.ID] = *d
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, d *Dinner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dinners[d.ID]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "dinner %d not found", d.ID)
	}
	r.dinners[d.ID] = *d
	return nil
}

func (r *MemoryRepository) ByID(ctx context.Context, id int64) (*Dinner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dinners[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "dinner %d not found", id)
	}
	copied := d
	return &copied, nil
}

func (r *MemoryRepository) ByHost(ctx context.Context, hostID int64) ([]*Dinner, error) {
	return r.filter(func(d Dinner) bool { return d.HostID == hostID }), nil
}

func (r *MemoryRepository) ByMenuAndStatus(ctx context.Context, menuID int64, status Status) ([]*Dinner, error) {
	return r.filter(func(d Dinner) bool { return d.MenuID == menuID && d.Status == status }), nil
}

func (r *MemoryRepository) All(ctx context.Context) ([]*Dinner, error) {
	return r.filter(func(Dinner) bool { return true }), nil
}

func (r *MemoryRepository) filter(keep func(Dinner) bool) []*Dinner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Dinner
	for _, d := range r.dinners {
		if keep(d) {
			copied := d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
