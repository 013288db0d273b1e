// Package repository declares the storage contracts the services depend on.
//
// Two implementations exist: repository/sqlite (database/sql over an embedded
// SQLite file) and repository/gormdb (gorm over Postgres). Services only see
// these interfaces.
package repository

import (
	"context"
	"time"

	"github.com/sakif/stepwise/internal/model"
)

// UserRepository stores the local user directory.
type UserRepository interface {
	// GetByExternalID returns apperror.ErrNotFound when the identity has no row.
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)

	// CreateIfAbsent inserts user unless a row with the same ExternalID already
	// exists. Either way user is overwritten with the stored row. created
	// reports whether this call inserted it. A username or email owned by a
	// different identity yields apperror.ErrConflict.
	CreateIfAbsent(ctx context.Context, user *model.User) (created bool, err error)
}

// SolutionRepository stores solved problems.
type SolutionRepository interface {
	// CreateNumbered assigns solution.ProblemNumber from the owner's counter
	// and inserts the row, atomically. ID, ProblemNumber and CreatedAt are
	// filled in on success.
	CreateNumbered(ctx context.Context, solution *model.Solution) error

	// CountSince counts the user's solutions created at or after since.
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)

	// ListByExternalID returns the identity's solutions, highest problem
	// number first. An empty archive is an empty slice, not an error.
	ListByExternalID(ctx context.Context, externalID string) ([]model.Solution, error)

	// GetByProblemNumber returns apperror.ErrNotFound when absent.
	GetByProblemNumber(ctx context.Context, externalID string, number int) (*model.Solution, error)
}

// Store is everything the server needs from a backend.
type Store interface {
	UserRepository
	SolutionRepository
	Ping(ctx context.Context) error
	Close() error
}
