package app

import (
	"context"
	"errors"
	"math"
	"strings"

	"constitution-gpt/internal/model"
	"constitution-gpt/internal/repository"
)

const maxReviewCommentRunes = 2000

type ReviewStore interface {
	Create(ctx context.Context, review *model.Review) error
	ExistsForPair(ctx context.Context, lawyerID, userID uint) (bool, error)
	ListByLawyerID(ctx context.Context, lawyerID uint) ([]model.Review, error)
}

type ReviewService struct {
	reviews ReviewStore
	lawyers *LawyerService
}

type ReviewInput struct {
	LawyerID uint
	UserID   uint
	Rating   int
	Comment  string
}

type ReviewSummary struct {
	Reviews []model.Review `json:"reviews"`
	Count   int            `json:"count"`
	Average float64        `json:"average_rating"`
}

func NewReviewService(reviews ReviewStore, lawyers *LawyerService) *ReviewService {
	return &ReviewService{reviews: reviews, lawyers: lawyers}
}

func (s *ReviewService) Create(ctx context.Context, input ReviewInput) (*model.Review, error) {
	if input.UserID == 0 || input.LawyerID == 0 {
		return nil, ErrInvalidInput
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, invalidField("rating", "must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if runeLen(comment) > maxReviewCommentRunes {
		return nil, invalidField("comment", "is too long")
	}
	if input.UserID == input.LawyerID {
		return nil, ErrForbidden
	}
	if _, err := s.lawyers.Get(ctx, input.LawyerID); err != nil {
		return nil, err
	}
	exists, err := s.reviews.ExistsForPair(ctx, input.LawyerID, input.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}

	review := &model.Review{
		LawyerID: input.LawyerID,
		UserID:   input.UserID,
		Rating:   input.Rating,
		Comment:  comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return review, nil
}

// List returns a verified lawyer's reviews with the average rating rounded to
// one decimal place.
func (s *ReviewService) List(ctx context.Context, lawyerID uint) (*ReviewSummary, error) {
	if _, err := s.lawyers.Get(ctx, lawyerID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByLawyerID(ctx, lawyerID)
	if err != nil {
		return nil, err
	}
	summary := &ReviewSummary{Reviews: reviews, Count: len(reviews)}
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		summary.Average = math.Round(float64(total)/float64(len(reviews))*10) / 10
	}
	return summary, nil
}
