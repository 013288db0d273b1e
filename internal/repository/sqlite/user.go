package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/model"
)

const userColumns = `id, external_id, first_name, last_name, username, email,
	profile_image, last_problem_number, created_at, updated_at`

// GetByExternalID retrieves a user by the identity provider's user id.
// Returns apperror.ErrNotFound if the identity has never been synced.
func (db *DB) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`,
		externalID,
	)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.UserNotFound(externalID)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", externalID, err)
	}
	return u, nil
}

// CreateIfAbsent inserts the user unless its external id is already present.
//
// ON CONFLICT(external_id) DO NOTHING makes two racing first-sight syncs for
// the same identity converge on one row: the loser inserts nothing and reads
// back the winner's row. Conflicts on username or email are NOT covered by
// that clause and surface as apperror.ErrConflict.
func (db *DB) CreateIfAbsent(ctx context.Context, user *model.User) (bool, error) {
	now := time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (external_id, first_name, last_name, username, email,
			profile_image, last_problem_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(external_id) DO NOTHING`,
		user.ExternalID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		nullString(user.ProfileImage),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, apperror.Conflict("user", user.ExternalID)
		}
		return false, fmt.Errorf("sqlite: inserting user (externalID=%s): %w", user.ExternalID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	stored, err := db.GetByExternalID(ctx, user.ExternalID)
	if err != nil {
		return false, err
	}
	*user = *stored

	return affected == 1, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u     model.User
		image sql.NullString
	)
	err := s.Scan(
		&u.ID,
		&u.ExternalID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.Email,
		&image,
		&u.LastProblemNumber,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ProfileImage = stringPtr(image)
	return &u, nil
}
