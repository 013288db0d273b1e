package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/model"
)

// CreateNumbered bumps users.last_problem_number and inserts the solution in
// one transaction. The UPDATE row-locks the owner, so a second solve by the
// same user blocks until the first commits and then sees its number.
func (s *Store) CreateNumbered(ctx context.Context, sol *model.Solution) error {
	row := solutionRow{
		UserID:         sol.UserID,
		ExternalID:     sol.ExternalID,
		ProblemType:    string(sol.ProblemType),
		ProblemContent: sol.ProblemContent,
		MimeType:       sol.MimeType,
		Solution:       sol.Solution,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bumped := tx.Model(&userRow{}).
			Where("id = ?", sol.UserID).
			UpdateColumn("last_problem_number", gorm.Expr("last_problem_number + 1"))
		if bumped.Error != nil {
			return fmt.Errorf("gormdb: bumping problem counter for user %d: %w", sol.UserID, bumped.Error)
		}
		if bumped.RowsAffected == 0 {
			return apperror.UserNotFound(sol.ExternalID)
		}

		var owner userRow
		if err := tx.Select("last_problem_number").Where("id = ?", sol.UserID).Take(&owner).Error; err != nil {
			return fmt.Errorf("gormdb: reading problem counter for user %d: %w", sol.UserID, err)
		}
		row.ProblemNumber = owner.LastProblemNumber

		if err := tx.Omit("User").Create(&row).Error; err != nil {
			if isDuplicate(err) {
				return apperror.Conflict("solution", strconv.Itoa(row.ProblemNumber))
			}
			return fmt.Errorf("gormdb: inserting solution for user %d: %w", sol.UserID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sol.ID = row.ID
	sol.ProblemNumber = row.ProblemNumber
	sol.CreatedAt = row.CreatedAt
	return nil
}

// CountSince counts the user's solutions created at or after since.
func (s *Store) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&solutionRow{}).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gormdb: counting solutions for user %d: %w", userID, err)
	}
	return int(count), nil
}

// ListByExternalID returns the archive, highest problem number first.
func (s *Store) ListByExternalID(ctx context.Context, externalID string) ([]model.Solution, error) {
	var rows []solutionRow
	err := s.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		Order("problem_number DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gormdb: listing solutions: %w", err)
	}

	solutions := make([]model.Solution, 0, len(rows))
	for i := range rows {
		solutions = append(solutions, rows[i].toModel())
	}
	return solutions, nil
}

// GetByProblemNumber returns apperror.ErrNotFound when absent.
func (s *Store) GetByProblemNumber(ctx context.Context, externalID string, number int) (*model.Solution, error) {
	var row solutionRow
	err := s.db.WithContext(ctx).
		Where("external_id = ? AND problem_number = ?", externalID, number).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("solution", strconv.Itoa(number))
		}
		return nil, fmt.Errorf("gormdb: getting solution %d: %w", number, err)
	}
	sol := row.toModel()
	return &sol, nil
}
