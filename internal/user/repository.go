package user

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	ByID(ctx context.Context, id int64) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
}

// MySQLRepository keeps accounts in the users table.
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository returns a repository bound to the given database.
func NewMySQLRepository(db *sql.DB) *MySQLRepository { return &MySQLRepository{db: db} }

func (r *MySQLRepository) Create(ctx context.Context, u *User) error {
	const q = `INSERT INTO users (name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return apperr.New(apperr.CodeConflict, "email already registered")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *MySQLRepository) ByID(ctx context.Context, id int64) (*User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *MySQLRepository) ByEmail(ctx context.Context, email string) (*User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

func (r *MySQLRepository) scanOne(row *sql.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

// isDuplicate reports a MySQL unique-key violation (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Error 1062")
}

// MemoryRepository is an in-process Repository used by tests and local runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[int64]*User), nextID: 1}
}

func (r *MemoryRepository) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperr.New(apperr.CodeConflict, "email already registered")
		}
	}
	u.ID = r.nextID
	r.nextID++
	copied := *u
	r.users[u.ID] = &copied
	return nil
}

func (r *MemoryRepository) ByID(ctx context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "user not found")
	}
	copied := *u
	return &copied, nil
}

func (r *MemoryRepository) ByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if r.users[id].Email == email {
			copied := *r.users[id]
			return &copied, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "user not found")
}
