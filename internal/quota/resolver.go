package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/repository"
)

// Usage is a caller's position against their monthly limit.
type Usage struct {
	Plan       Plan `json:"plan"`
	UsageCount int  `json:"usageCount"`
	Limit      int  `json:"limit"`
	Remaining  int  `json:"remaining"`
	CanSolve   bool `json:"canSolve"`
}

// Compute derives limit, remaining and canSolve for plan at count solves.
func Compute(plan Plan, count int) Usage {
	limit := plan.Limit()
	u := Usage{Plan: plan, UsageCount: count, Limit: limit}
	if limit == Unlimited {
		u.Remaining = Unlimited
		u.CanSolve = true
		return u
	}
	u.Remaining = max(0, limit-count)
	u.CanSolve = count < limit
	return u
}

// MonthStart is local midnight on the 1st of now's month, in now's location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Resolver combines the plan oracle with the archive's monthly count.
//
// Two policies:
//   - Resolve gates solving. It never guesses: any oracle or store failure
//     is returned.
//   - PlanForDisplay answers "what plan am I on" for the UI. It never fails
//     and falls back to Free.
type Resolver struct {
	oracle    PlanOracle
	users     repository.UserRepository
	solutions repository.SolutionRepository
	now       func() time.Time
	logger    *slog.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now, for tests pinned to a month boundary.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver returns a Resolver.
func NewResolver(oracle PlanOracle, users repository.UserRepository, solutions repository.SolutionRepository, log *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		oracle:    oracle,
		users:     users,
		solutions: solutions,
		now:       time.Now,
		logger:    log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the caller's plan and month-to-date usage.
//
// Errors: apperror.ErrUnauthenticated for an empty identity,
// apperror.ErrNotFound when the identity was never synced, otherwise the
// wrapped oracle/store failure.
func (r *Resolver) Resolve(ctx context.Context, id identity.Identity) (Usage, error) {
	if id.ID == "" {
		return Usage{}, apperror.Unauthenticated()
	}

	user, err := r.users.GetByExternalID(ctx, id.ID)
	if err != nil {
		return Usage{}, err
	}

	plan, err := r.oracle.ResolvePlan(ctx, id)
	if err != nil {
		return Usage{}, fmt.Errorf("quota: resolving plan for %s: %w", id.ID, err)
	}

	since := MonthStart(r.now())
	count, err := r.solutions.CountSince(ctx, user.ID, since)
	if err != nil {
		return Usage{}, fmt.Errorf("quota: counting usage for %s: %w", id.ID, err)
	}

	return Compute(plan, count), nil
}

// PlanForDisplay returns the caller's plan, or Free when there is no
// identity or the oracle fails. Failures are logged, never returned.
func (r *Resolver) PlanForDisplay(ctx context.Context, id identity.Identity) Plan {
	if id.ID == "" {
		return PlanFree
	}
	plan, err := r.oracle.ResolvePlan(ctx, id)
	if err != nil {
		r.logger.Warn("plan lookup failed, showing free",
			slog.String("external_id", id.ID),
			slog.String("error", err.Error()),
		)
		return PlanFree
	}
	return plan
}
