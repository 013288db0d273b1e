package service

import (
	"context"
	"log/slog"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/model"
	"github.com/sakif/stepwise/internal/repository"
)

// ArchiveService reads back a caller's own solutions.
type ArchiveService struct {
	solutions repository.SolutionRepository
	logger    *slog.Logger
}

// NewArchiveService creates an ArchiveService.
func NewArchiveService(solutions repository.SolutionRepository, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{solutions: solutions, logger: logger}
}

// List returns every solution owned by id, newest first. It is never nil.
func (s *ArchiveService) List(ctx context.Context, id identity.Identity) ([]model.Solution, error) {
	if id.ID == "" {
		return nil, apperror.Unauthenticated()
	}
	return s.solutions.ListByExternalID(ctx, id.ID)
}

// Get returns the caller's solution with the given problem number. Another
// user's number is indistinguishable from one that does not exist.
func (s *ArchiveService) Get(ctx context.Context, id identity.Identity, number int) (*model.Solution, error) {
	if id.ID == "" {
		return nil, apperror.Unauthenticated()
	}
	if number < 1 {
		return nil, apperror.ValidationFailed("problemNumber", "problem number must be a positive integer")
	}
	return s.solutions.GetByProblemNumber(ctx, id.ID, number)
}
