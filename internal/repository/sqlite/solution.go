package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/model"
)

const solutionColumns = `id, user_id, external_id, problem_number, problem_type,
	problem_content, mime_type, solution, created_at`

// CreateNumbered assigns the next problem number and inserts the solution.
//
// ATOMIC NUMBERING:
// The owner's counter is bumped with a single UPDATE ... RETURNING, and the
// INSERT runs in the same transaction. The UPDATE takes SQLite's write lock,
// so a concurrent solve by the same user waits (busy_timeout) instead of
// reading the same value. If the INSERT fails the counter rolls back with it,
// which keeps numbers contiguous.
func (db *DB) CreateNumbered(ctx context.Context, s *model.Solution) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning solution tx: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	var number int
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET last_problem_number = last_problem_number + 1
		 WHERE id = ?
		 RETURNING last_problem_number`,
		s.UserID,
	).Scan(&number)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.UserNotFound(s.ExternalID)
		}
		return fmt.Errorf("sqlite: bumping problem counter for user %d: %w", s.UserID, err)
	}

	createdAt := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO solutions (user_id, external_id, problem_number, problem_type,
			problem_content, mime_type, solution, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID,
		s.ExternalID,
		number,
		string(s.ProblemType),
		s.ProblemContent,
		nullString(s.MimeType),
		s.Solution,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("solution", strconv.Itoa(number))
		}
		return fmt.Errorf("sqlite: inserting solution for user %d: %w", s.UserID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading solution id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing solution: %w", err)
	}

	s.ID = id
	s.ProblemNumber = number
	s.CreatedAt = createdAt
	return nil
}

// CountSince counts the user's solutions in [since, now].
func (db *DB) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM solutions WHERE user_id = ? AND created_at >= ?`,
		userID,
		since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting solutions for user %d: %w", userID, err)
	}
	return count, nil
}

// ListByExternalID returns the archive, newest problem number first.
func (db *DB) ListByExternalID(ctx context.Context, externalID string) ([]model.Solution, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+solutionColumns+`
		 FROM solutions
		 WHERE external_id = ?
		 ORDER BY problem_number DESC`,
		externalID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing solutions: %w", err)
	}
	// Rows hold a pooled connection until closed.
	defer rows.Close()

	solutions := []model.Solution{}
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning solution row: %w", err)
		}
		solutions = append(solutions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating solutions: %w", err)
	}

	return solutions, nil
}

// GetByProblemNumber fetches one archived problem of the identity.
func (db *DB) GetByProblemNumber(ctx context.Context, externalID string, number int) (*model.Solution, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+solutionColumns+`
		 FROM solutions
		 WHERE external_id = ? AND problem_number = ?`,
		externalID,
		number,
	)

	s, err := scanSolution(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("solution", strconv.Itoa(number))
		}
		return nil, fmt.Errorf("sqlite: getting solution %d: %w", number, err)
	}
	return s, nil
}

func scanSolution(sc scanner) (*model.Solution, error) {
	var (
		s           model.Solution
		problemType string
		mime        sql.NullString
	)
	err := sc.Scan(
		&s.ID,
		&s.UserID,
		&s.ExternalID,
		&s.ProblemNumber,
		&problemType,
		&s.ProblemContent,
		&mime,
		&s.Solution,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ProblemType = model.ProblemType(problemType)
	s.MimeType = stringPtr(mime)
	return &s, nil
}
