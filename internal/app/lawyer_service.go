package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"constitution-gpt/internal/model"
)

type LawyerStore interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	ListLawyers(ctx context.Context, city string, verifiedOnly bool) ([]model.User, error)
	SetVerified(ctx context.Context, lawyerID uint, verified bool) (bool, error)
}

type LawyerService struct {
	store  LawyerStore
	logger *zap.Logger
}

func NewLawyerService(store LawyerStore, logger *zap.Logger) *LawyerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LawyerService{store: store, logger: logger}
}

// ListVerified returns verified lawyers, optionally filtered by city
// (case-insensitive substring).
func (s *LawyerService) ListVerified(ctx context.Context, city string) ([]model.User, error) {
	return s.store.ListLawyers(ctx, strings.TrimSpace(city), true)
}

// AdminList returns every lawyer regardless of verification.
func (s *LawyerService) AdminList(ctx context.Context) ([]model.User, error) {
	return s.store.ListLawyers(ctx, "", false)
}

// Get returns a verified lawyer's profile.
func (s *LawyerService) Get(ctx context.Context, id uint) (*model.User, error) {
	lawyer, err := s.lawyer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lawyer.IsVerified {
		return nil, ErrNotFound
	}
	return lawyer, nil
}

func (s *LawyerService) SetVerified(ctx context.Context, lawyerID uint, verified bool) error {
	if lawyerID == 0 {
		return ErrInvalidInput
	}
	ok, err := s.store.SetVerified(ctx, lawyerID, verified)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.logger.Info("lawyer verification changed", zap.Uint("lawyer_id", lawyerID), zap.Bool("verified", verified))
	return nil
}

func (s *LawyerService) lawyer(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Role != model.RoleLawyer || !u.IsActive {
		return nil, ErrNotFound
	}
	return u, nil
}
