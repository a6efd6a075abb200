package identity

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// MySQLStore persists the projection in the guests and hosts tables.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

func (s *MySQLStore) UpsertGuest(ctx context.Context, g Guest) error {
	const q = `INSERT INTO guests (id, name, email) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email)`
	_, err := s.db.ExecContext(ctx, q, g.ID, g.Name, g.Email)
	return err
}

func (s *MySQLStore) UpsertHost(ctx context.Context, h Host) error {
	const q = `INSERT INTO hosts (id, name, email) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email)`
	_, err := s.db.ExecContext(ctx, q, h.ID, h.Name, h.Email)
	return err
}

func (s *MySQLStore) GuestByID(ctx context.Context, id int64) (*Guest, bool, error) {
	const q = `SELECT id, name, email FROM guests WHERE id = ?`
	var g Guest
	err := s.db.QueryRowContext(ctx, q, id).Scan(&g.ID, &g.Name, &g.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &g, true, nil
}

func (s *MySQLStore) HostByID(ctx context.Context, id int64) (*Host, bool, error) {
	const q = `SELECT id, name, email FROM hosts WHERE id = ?`
	var h Host
	err := s.db.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &h.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &h, true, nil
}

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	guests map[int64]Guest
	hosts  map[int64]Host
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{guests: make(map[int64]Guest), hosts: make(map[int64]Host)}
}

func (s *MemoryStore) UpsertGuest(ctx context.Context, g Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guests[g.ID] = g
	return nil
}

func (s *MemoryStore) UpsertHost(ctx context.Context, h Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts[h.ID] = h
	return nil
}

func (s *MemoryStore) GuestByID(ctx context.Context, id int64) (*Guest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[id]
	if !ok {
		return nil, false, nil
	}
	copied := g
	return &copied, true, nil
}

func (s *MemoryStore) HostByID(ctx context.Context, id int64) (*Host, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hosts[id]
	if !ok {
		return nil, false, nil
	}
	copied := h
	return &copied, true, nil
}
