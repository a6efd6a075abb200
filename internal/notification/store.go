package notification

import (
	"context"
	"database/sql"
	"sort"
	"sync"
)

// Store persists notification records. Save is an upsert keyed by id so a
// send attempt can rewrite the status of an existing row.
type Store interface {
	Save(ctx context.Context, n Notification) error
	// Pending returns every PENDING notification, oldest created first.
	Pending(ctx context.Context) ([]Notification, error)
	ByUser(ctx context.Context, userID int64) ([]Notification, error)
}

// MySQLStore keeps notifications in the notifications table.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

func (s *MySQLStore) Save(ctx context.Context, n Notification) error {
	const q = `INSERT INTO notifications
		(id, user_id, user_type, email, subject, description, created_at, delete_at, channel, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status), delete_at = VALUES(delete_at)`
	var deleteAt any
	if n.DeleteAt != nil {
		deleteAt = n.DeleteAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, q,
		n.ID, n.UserID, string(n.UserType), n.Email, n.Subject, n.Description,
		n.CreatedAt.UTC(), deleteAt, string(n.Channel), string(n.Status))
	return err
}

func (s *MySQLStore) Pending(ctx context.Context) ([]Notification, error) {
	const q = `SELECT id, user_id, user_type, email, subject, description,
			created_at, delete_at, channel, status
		FROM notifications WHERE status = 'PENDING' ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (s *MySQLStore) ByUser(ctx context.Context, userID int64) ([]Notification, error) {
	const q = `SELECT id, user_id, user_type, email, subject, description,
			created_at, delete_at, channel, status
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		var n Notification
		var userType, channel, status string
		var deleteAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &userType, &n.Email, &n.Subject,
			&n.Description, &n.CreatedAt, &deleteAt, &channel, &status); err != nil {
			return nil, err
		}
		n.UserType = UserType(userType)
		n.Channel = Channel(channel)
		n.Status = Status(status)
		if deleteAt.Valid {
			t := deleteAt.Time
			n.DeleteAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Notification
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Notification)}
}

func (s *MemoryStore) Save(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[n.ID] = n
	return nil
}

func (s *MemoryStore) Pending(ctx context.Context) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.rows {
		if n.Status == StatusPending {
			out = append(out, n)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *MemoryStore) ByUser(ctx context.Context, userID int64) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// All returns every row; test helper.
func (s *MemoryStore) All() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, 0, len(s.rows))
	for _, n := range s.rows {
		out = append(out, n)
	}
	sortByCreatedAt(out)
	return out
}

func sortByCreatedAt(ns []Notification) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].ID < ns[j].ID
		}
		return ns[i].CreatedAt.Before(ns[j].CreatedAt)
	})
}
