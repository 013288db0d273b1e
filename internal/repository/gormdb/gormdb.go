// Package gormdb implements the repository interfaces with gorm, for
// deployments that keep the directory and archive in Postgres.
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/stepwise/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Options tunes the connection pool. Zero values keep database/sql defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is a gorm-backed repository.Store.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to Postgres with dsn, applies the pool options and migrates.
func Open(dsn string, opts Options, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("gormdb: connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormdb: getting underlying sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return New(db, log)
}

// Config is the gorm configuration every Store connection uses. TranslateError
// turns driver-specific unique violations into gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// New wraps an already opened gorm connection and migrates it. Tests use it
// with an in-memory dialect.
func New(db *gorm.DB, log *slog.Logger) (*Store, error) {
	s := &Store{db: db, logger: log}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("gormdb: running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&userRow{}, &solutionRow{}); err != nil {
		return err
	}
	s.logger.Debug("gorm schema migrated")
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("gormdb: ping: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("gormdb: ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
