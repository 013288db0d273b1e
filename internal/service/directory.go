// Package service contains the business logic layer of StepWise.
//
//	Handler (HTTP) → Service (rules, orchestration) → Repository (storage)
//	                                                ↘ identity provider, AI model
//
// Services take the caller's identity.Identity as an explicit argument and
// return apperror values; they know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/metrics"
	"github.com/sakif/stepwise/internal/model"
	"github.com/sakif/stepwise/internal/repository"
)

// ProfileSource looks up an identity's profile at the provider.
// *identity.Client implements it.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*identity.Profile, error)
}

var _ ProfileSource = (*identity.Client)(nil)

// DirectoryService keeps the local user directory in step with the identity
// provider.
type DirectoryService struct {
	users    repository.UserRepository
	profiles ProfileSource
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDirectoryService creates a DirectoryService.
func NewDirectoryService(users repository.UserRepository, profiles ProfileSource, m *metrics.Metrics, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{
		users:    users,
		profiles: profiles,
		metrics:  m,
		logger:   logger,
	}
}

// EnsureUser returns the directory row for id, creating it from the
// provider profile the first time the identity is seen. An existing row is
// returned unchanged; profile edits at the provider are not copied over.
//
// Two concurrent first-sight calls both return the same row.
func (s *DirectoryService) EnsureUser(ctx context.Context, id identity.Identity) (*model.User, error) {
	if id.ID == "" {
		return nil, apperror.Unauthenticated()
	}

	existing, err := s.users.GetByExternalID(ctx, id.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/directory: looking up %s: %w", id.ID, err)
	}

	profile, err := s.profiles.GetProfile(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("service/directory: fetching profile for %s: %w", id.ID, err)
	}

	user := NewUserFromProfile(id.ID, profile)
	created, err := s.users.CreateIfAbsent(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user",
			slog.String("external_id", id.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/directory: creating %s: %w", id.ID, err)
	}

	if created {
		s.metrics.ObserveUserCreated()
		s.logger.Info("user created",
			slog.String("external_id", user.ExternalID),
			slog.Int64("id", user.ID),
			slog.String("username", user.Username),
		)
	}
	return user, nil
}

// Get returns the caller's directory row, apperror.ErrNotFound if it was
// never synced.
func (s *DirectoryService) Get(ctx context.Context, id identity.Identity) (*model.User, error) {
	if id.ID == "" {
		return nil, apperror.Unauthenticated()
	}
	return s.users.GetByExternalID(ctx, id.ID)
}

// NewUserFromProfile builds the row inserted on first sight.
func NewUserFromProfile(externalID string, p *identity.Profile) *model.User {
	u := &model.User{
		ExternalID: externalID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Username:   DeriveUsername(p.Username, p.Email),
		Email:      p.Email,
	}
	if p.ImageURL != "" {
		img := p.ImageURL
		u.ProfileImage = &img
	}
	return u
}

// DeriveUsername prefers the provider username, then the local part of the
// email, then "".
func DeriveUsername(username, email string) string {
	if u := strings.TrimSpace(username); u != "" {
		return u
	}
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}
