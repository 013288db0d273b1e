package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/model"
)

// GetByExternalID returns apperror.ErrNotFound for an identity with no row.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.UserNotFound(externalID)
		}
		return nil, fmt.Errorf("gormdb: getting user %s: %w", externalID, err)
	}
	return row.toModel(), nil
}

// CreateIfAbsent inserts with ON CONFLICT (external_id) DO NOTHING and reads
// the surviving row back.
func (s *Store) CreateIfAbsent(ctx context.Context, user *model.User) (bool, error) {
	now := time.Now().UTC()
	row := userRow{
		ExternalID:   user.ExternalID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		Email:        user.Email,
		ProfileImage: user.ProfileImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return false, apperror.Conflict("user", user.ExternalID)
		}
		return false, fmt.Errorf("gormdb: inserting user (externalID=%s): %w", user.ExternalID, result.Error)
	}

	stored, err := s.GetByExternalID(ctx, user.ExternalID)
	if err != nil {
		return false, err
	}
	*user = *stored

	return result.RowsAffected == 1, nil
}
