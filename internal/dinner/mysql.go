package dinner

import (
	"context"
	"database/sql"
	"errors"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// MySQLRepository persists dinners in the dinners table. All timestamp
// columns are stored in UTC (the connection is opened with loc=UTC).
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository returns a repository bound to the given database.
func NewMySQLRepository(db *sql.DB) *MySQLRepository { return &MySQLRepository{db: db} }

const dinnerColumns = `id, host_id, menu_id, name, description, price, start_time, end_time,
	address, cuisine_type, max_guest_count, image_url, status`

func (r *MySQLRepository) Create(ctx context.Context, d *Dinner) error {
	const q = `INSERT INTO dinners
		(host_id, menu_id, name, description, price, start_time, end_time,
		 address, cuisine_type, max_guest_count, image_url, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		d.HostID, d.MenuID, d.Name, d.Description, d.Price,
		d.TimeRange.Start, d.TimeRange.End, d.Address.Format(),
		d.CuisineType, d.MaxGuestCount, d.ImageURL, string(d.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

func (r *MySQLRepository) Update(ctx context.Context, d *Dinner) error {
	const q = `UPDATE dinners SET host_id = ?, menu_id = ?, name = ?, description = ?,
		price = ?, start_time = ?, end_time = ?, address = ?, cuisine_type = ?,
		max_guest_count = ?, image_url = ?, status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		d.HostID, d.MenuID, d.Name, d.Description, d.Price,
		d.TimeRange.Start, d.TimeRange.End, d.Address.Format(),
		d.CuisineType, d.MaxGuestCount, d.ImageURL, string(d.Status), d.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The row may still exist with identical values; confirm before 404.
		if _, err := r.ByID(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLRepository) ByID(ctx context.Context, id int64) (*Dinner, error) {
	const q = `SELECT ` + dinnerColumns + ` FROM dinners WHERE id = ?`
	d, err := scanDinner(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.CodeNotFound, "dinner %d not found", id)
	}
	return d, err
}

func (r *MySQLRepository) ByHost(ctx context.Context, hostID int64) ([]*Dinner, error) {
	const q = `SELECT ` + dinnerColumns + ` FROM dinners WHERE host_id = ? ORDER BY start_time`
	return r.queryDinners(ctx, q, hostID)
}

func (r *MySQLRepository) ByMenuAndStatus(ctx context.Context, menuID int64, status Status) ([]*Dinner, error) {
	const q = `SELECT ` + dinnerColumns + ` FROM dinners WHERE menu_id = ? AND status = ? ORDER BY start_time`
	return r.queryDinners(ctx, q, menuID, string(status))
}

func (r *MySQLRepository) All(ctx context.Context) ([]*Dinner, error) {
	const q = `SELECT ` + dinnerColumns + ` FROM dinners ORDER BY start_time`
	return r.queryDinners(ctx, q)
}

func (r *MySQLRepository) queryDinners(ctx context.Context, q string, args ...any) ([]*Dinner, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Dinner
	for rows.Next() {
		d, err := scanDinner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDinner hydrates an aggregate from a stored row. Stored values passed
// through the same parsers as new input; a corrupted row surfaces as an
// error instead of a half-built aggregate.
func scanDinner(row rowScanner) (*Dinner, error) {
	var (
		rec struct {
			id, hostID, menuID int64
			name, description  string
			price              float64
			start, end         sql.NullTime
			address, cuisine   string
			maxGuests          int
			imageURL           sql.NullString
			status             string
		}
	)
	err := row.Scan(&rec.id, &rec.hostID, &rec.menuID, &rec.name, &rec.description,
		&rec.price, &rec.start, &rec.end, &rec.address, &rec.cuisine,
		&rec.maxGuests, &rec.imageURL, &rec.status)
	if err != nil {
		return nil, err
	}

	tr, err := NewTimeRange(rec.start.Time, rec.end.Time)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(rec.address)
	if err != nil {
		return nil, err
	}
	status, err := ParseStatus(rec.status)
	if err != nil {
		return nil, err
	}
	return Hydrate(rec.id, rec.hostID, rec.menuID, rec.name, rec.description, rec.price,
		tr, addr, rec.cuisine, rec.maxGuests, rec.imageURL.String, status), nil
}
