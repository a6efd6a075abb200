package dinner

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// Review is a guest's rating of a past dinner. Reviews are append-only.
type Review struct {
	ID        int64
	DinnerID  int64
	GuestID   int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// NewReview validates and builds a review. Ratings run 1 to 5.
func NewReview(dinnerID, guestID int64, rating int, comment string, now time.Time) (*Review, error) {
	var problems []string
	if dinnerID <= 0 {
		problems = append(problems, "dinner id must be positive")
	}
	if guestID <= 0 {
		problems = append(problems, "guest id must be positive")
	}
	if rating < 1 || rating > 5 {
		problems = append(problems, "rating must be between 1 and 5")
	}
	if len(problems) > 0 {
		return nil, apperr.New(apperr.CodeInvalid, strings.Join(problems, "; "))
	}
	return &Review{
		DinnerID:  dinnerID,
		GuestID:   guestID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now.UTC(),
	}, nil
}

// ReviewRepository persists reviews.
type ReviewRepository interface {
	Create(ctx context.Context, r *Review) error
	ByDinner(ctx context.Context, dinnerID int64) ([]*Review, error)
	// MeanRating returns 0 with ok=false when the dinner has no reviews.
	MeanRating(ctx context.Context, dinnerID int64) (float64, bool, error)
}

// MySQLReviewRepository keeps reviews in the reviews table.
type MySQLReviewRepository struct {
	db *sql.DB
}

// NewMySQLReviewRepository returns a repository bound to the given database.
func NewMySQLReviewRepository(db *sql.DB) *MySQLReviewRepository {
	return &MySQLReviewRepository{db: db}
}

func (r *MySQLReviewRepository) Create(ctx context.Context, rv *Review) error {
	const q = `INSERT INTO reviews (dinner_id, guest_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rv.DinnerID, rv.GuestID, rv.Rating, rv.Comment, rv.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = id
	return nil
}

func (r *MySQLReviewRepository) ByDinner(ctx context.Context, dinnerID int64) ([]*Review, error) {
	const q = `SELECT id, dinner_id, guest_id, rating, comment, created_at
		FROM reviews WHERE dinner_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, dinnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.DinnerID, &rv.GuestID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rv)
	}
	return out, rows.Err()
}

func (r *MySQLReviewRepository) MeanRating(ctx context.Context, dinnerID int64) (float64, bool, error) {
	const q = `SELECT AVG(rating) FROM reviews WHERE dinner_id = ?`
	var mean sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, q, dinnerID).Scan(&mean); err != nil {
		return 0, false, err
	}
	if !mean.Valid {
		return 0, false, nil
	}
	return mean.Float64, true, nil
}

// MemoryReviewRepository is an in-process ReviewRepository for tests and
// local runs.
type MemoryReviewRepository struct {
	mu      sync.RWMutex
	reviews map[int64]*Review
	nextID  int64
}

// NewMemoryReviewRepository builds an empty in-memory repository.
func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{reviews: make(map[int64]*Review), nextID: 1}
}

func (r *MemoryReviewRepository) Create(ctx context.Context, rv *Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv.ID = r.nextID
	r.nextID++
	copied := *rv
	r.reviews[rv.ID] = &copied
	return nil
}

func (r *MemoryReviewRepository) ByDinner(ctx context.Context, dinnerID int64) ([]*Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Review
	for _, rv := range r.reviews {
		if rv.DinnerID == dinnerID {
			copied := *rv
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *MemoryReviewRepository) MeanRating(ctx context.Context, dinnerID int64) (float64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum, count := 0, 0
	for _, rv := range r.reviews {
		if rv.DinnerID == dinnerID {
			sum += rv.Rating
			count++
		}
	}
	if count == 0 {
		return 0, false, nil
	}
	return float64(sum) / float64(count), true, nil
}
