package dinner

import "context"

// Repository persists dinner aggregates. Create assigns the generated id on
// the passed aggregate. ByID returns apperr.CodeNotFound when no row exists.
type Repository interface {
	Create(ctx context.Context, d *Dinner) error
	Update(ctx context.Context, d *Dinner) error
	ByID(ctx context.Context, id int64) (*Dinner, error)
	ByHost(ctx context.Context, hostID int64) ([]*Dinner, error)
	ByMenuAndStatus(ctx context.Context, menuID int64, status Status) ([]*Dinner, error)
	All(ctx context.Context) ([]*Dinner, error)
}
