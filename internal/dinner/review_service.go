package dinner

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReviewService records reviews for completed dinners and serves the mean
// rating the read surface attaches to dinner responses.
type ReviewService struct {
	reviews ReviewRepository
	dinners Repository
	log     *zap.Logger
	now     func() time.Time
}

// NewReviewService wires the review service. A nil clock defaults to
// time.Now.
func NewReviewService(reviews ReviewRepository, dinners Repository,
	log *zap.Logger, now func() time.Time) *ReviewService {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &ReviewService{reviews: reviews, dinners: dinners, log: log, now: now}
}

// Add validates and records a review. The dinner must exist; reviews for
// not-yet-completed dinners are accepted, matching the booking flow where
// guests rate as the evening winds down.
func (s *ReviewService) Add(ctx context.Context, dinnerID, guestID int64, rating int, comment string) (*Review, error) {
	if _, err := s.dinners.ByID(ctx, dinnerID); err != nil {
		return nil, err
	}
	rv, err := NewReview(dinnerID, guestID, rating, comment, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	s.log.Info("review recorded",
		zap.Int64("dinner_id", dinnerID),
		zap.Int64("guest_id", guestID),
		zap.Int("rating", rating))
	return rv, nil
}

// ByDinner lists a dinner's reviews, newest first.
func (s *ReviewService) ByDinner(ctx context.Context, dinnerID int64) ([]*Review, error) {
	return s.reviews.ByDinner(ctx, dinnerID)
}

// MeanRating returns the average rating; ok is false when the dinner has no
// reviews yet.
func (s *ReviewService) MeanRating(ctx context.Context, dinnerID int64) (float64, bool, error) {
	return s.reviews.MeanRating(ctx, dinnerID)
}
