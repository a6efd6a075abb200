package reservation

import (
	"context"
	"database/sql"
	"errors"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// MySQLRepository persists reservations in the reservations table.
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository returns a repository bound to the given database.
func NewMySQLRepository(db *sql.DB) *MySQLRepository { return &MySQLRepository{db: db} }

func (r *MySQLRepository) Create(ctx context.Context, res *Reservation) error {
	const q = `INSERT INTO reservations (id, dinner_id, guest_id, reservation_date) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, res.ID, res.DinnerID, res.GuestID, res.ReservationDate)
	return err
}

func (r *MySQLRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM reservations WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	return nil
}

func (r *MySQLRepository) ByID(ctx context.Context, id string) (*Reservation, error) {
	const q = `SELECT id, dinner_id, guest_id, reservation_date FROM reservations WHERE id = ?`
	var res Reservation
	err := r.db.QueryRowContext(ctx, q, id).Scan(&res.ID, &res.DinnerID, &res.GuestID, &res.ReservationDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.CodeNotFound, "reservation %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *MySQLRepository) ByGuest(ctx context.Context, guestID int64) ([]*Reservation, error) {
	const q = `SELECT id, dinner_id, guest_id, reservation_date FROM reservations
		WHERE guest_id = ? ORDER BY reservation_date`
	rows, err := r.db.QueryContext(ctx, q, guestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.DinnerID, &res.GuestID, &res.ReservationDate); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

func (r *MySQLRepository) GuestIDsByDinner(ctx context.Context, dinnerID int64) ([]int64, error) {
	const q = `SELECT guest_id FROM reservations WHERE dinner_id = ? ORDER BY reservation_date`
	rows, err := r.db.QueryContext(ctx, q, dinnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MySQLProjectionStore keeps dinner snapshots in the dinner_projection
// table. Upserts are last-write-wins.
type MySQLProjectionStore struct {
	db *sql.DB
}

// NewMySQLProjectionStore returns a store bound to the given database.
func NewMySQLProjectionStore(db *sql.DB) *MySQLProjectionStore { return &MySQLProjectionStore{db: db} }

func (s *MySQLProjectionStore) Upsert(ctx context.Context, snap DinnerSnapshot) error {
	const q = `INSERT INTO dinner_projection
		(dinner_id, host_id, menu_id, name, description, price, start_time, end_time,
		 address, cuisine_type, max_guest_count, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		 host_id = VALUES(host_id), menu_id = VALUES(menu_id), name = VALUES(name),
		 description = VALUES(description), price = VALUES(price),
		 start_time = VALUES(start_time), end_time = VALUES(end_time),
		 address = VALUES(address), cuisine_type = VALUES(cuisine_type),
		 max_guest_count = VALUES(max_guest_count), status = VALUES(status)`
	_, err := s.db.ExecContext(ctx, q,
		snap.ID, snap.HostID, snap.MenuID, snap.Name, snap.Description, snap.Price,
		snap.StartTime, snap.EndTime, snap.Address, snap.CuisineType,
		snap.MaxGuestCount, snap.Status)
	return err
}

func (s *MySQLProjectionStore) ByID(ctx context.Context, dinnerID int64) (*DinnerSnapshot, bool, error) {
	const q = `SELECT dinner_id, host_id, menu_id, name, description, price, start_time, end_time,
		address, cuisine_type, max_guest_count, status
		FROM dinner_projection WHERE dinner_id = ?`
	var snap DinnerSnapshot
	err := s.db.QueryRowContext(ctx, q, dinnerID).Scan(
		&snap.ID, &snap.HostID, &snap.MenuID, &snap.Name, &snap.Description, &snap.Price,
		&snap.StartTime, &snap.EndTime, &snap.Address, &snap.CuisineType,
		&snap.MaxGuestCount, &snap.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}
