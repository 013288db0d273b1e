package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/explainer"
	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/metrics"
	"github.com/sakif/stepwise/internal/model"
	"github.com/sakif/stepwise/internal/quota"
	"github.com/sakif/stepwise/internal/repository"
)

// SolveFailedMessage is the only detail a client sees when the AI call fails.
const SolveFailedMessage = "Failed to solve math problem"

// QuotaChecker reports the caller's standing against their monthly limit.
// *quota.Resolver implements it.
type QuotaChecker interface {
	Resolve(ctx context.Context, id identity.Identity) (quota.Usage, error)
}

var _ QuotaChecker = (*quota.Resolver)(nil)

// SolveResult is what a successful solve returns to the client.
type SolveResult struct {
	Solution      string `json:"solution"`
	ProblemNumber int    `json:"problemNumber"`
}

// SolveService runs the solve pipeline:
//
//	auth → quota → user lookup → validate → AI call → number + persist
//
// Each step short-circuits. Nothing is written unless the AI call succeeded,
// and exactly one row is written when it did.
type SolveService struct {
	quota     QuotaChecker
	users     repository.UserRepository
	solutions repository.SolutionRepository
	ai        explainer.Explainer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSolveService creates a SolveService.
func NewSolveService(
	q QuotaChecker,
	users repository.UserRepository,
	solutions repository.SolutionRepository,
	ai explainer.Explainer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SolveService {
	return &SolveService{
		quota:     q,
		users:     users,
		solutions: solutions,
		ai:        ai,
		metrics:   m,
		logger:    logger,
	}
}

// Solve explains req for id and archives the result under the next problem
// number.
func (s *SolveService) Solve(ctx context.Context, id identity.Identity, req SolveRequest) (*SolveResult, error) {
	if id.ID == "" {
		return nil, apperror.Unauthenticated()
	}

	usage, err := s.quota.Resolve(ctx, id)
	if err != nil {
		s.metrics.ObserveSolve(label(req.Type), metrics.OutcomeError)
		return nil, fmt.Errorf("service/solve: checking quota: %w", err)
	}
	if !usage.CanSolve {
		s.metrics.ObserveSolve(label(req.Type), metrics.OutcomeQuotaExceeded)
		s.metrics.ObserveQuotaRejection(string(usage.Plan))
		s.logger.Info("solve rejected: monthly limit reached",
			slog.String("external_id", id.ID),
			slog.String("plan", string(usage.Plan)),
			slog.Int("limit", usage.Limit),
			slog.Int("usage", usage.UsageCount),
		)
		return nil, apperror.QuotaExceeded(usage.Limit)
	}

	user, err := s.users.GetByExternalID(ctx, id.ID)
	if err != nil {
		s.metrics.ObserveSolve(label(req.Type), metrics.OutcomeError)
		return nil, err
	}

	p, err := parseProblem(req)
	if err != nil {
		s.metrics.ObserveSolve(label(req.Type), metrics.OutcomeInvalid)
		return nil, err
	}

	start := time.Now()
	text, err := s.ai.Generate(ctx, p.request)
	s.metrics.ObserveAIRequest(string(p.kind), time.Since(start))
	if err != nil {
		s.metrics.ObserveSolve(string(p.kind), metrics.OutcomeUpstreamError)
		s.logger.Error("AI call failed",
			slog.String("external_id", id.ID),
			slog.String("type", string(p.kind)),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream(SolveFailedMessage, err)
	}

	solution := &model.Solution{
		UserID:         user.ID,
		ExternalID:     user.ExternalID,
		ProblemType:    p.kind,
		ProblemContent: p.content,
		MimeType:       p.mime,
		Solution:       text,
	}

	// The answer is already paid for; a client hanging up now must not lose it.
	if err := s.solutions.CreateNumbered(context.WithoutCancel(ctx), solution); err != nil {
		s.metrics.ObserveSolve(string(p.kind), metrics.OutcomeError)
		s.logger.Error("failed to store solution",
			slog.String("external_id", id.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/solve: storing solution: %w", err)
	}

	s.metrics.ObserveSolve(string(p.kind), metrics.OutcomeSuccess)
	s.logger.Info("problem solved",
		slog.String("external_id", id.ID),
		slog.Int("problem_number", solution.ProblemNumber),
		slog.String("type", string(p.kind)),
	)

	return &SolveResult{
		Solution:      solution.Solution,
		ProblemNumber: solution.ProblemNumber,
	}, nil
}

// label keeps arbitrary client input out of metric label values.
func label(problemType string) string {
	if model.ProblemType(problemType).Valid() {
		return problemType
	}
	return "other"
}
