package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/model"
	"github.com/sakif/stepwise/internal/quota"
	"github.com/sakif/stepwise/internal/service"
)

// Usage is the part of quota.Resolver the handler needs.
type Usage interface {
	Resolve(ctx context.Context, id identity.Identity) (quota.Usage, error)
	PlanForDisplay(ctx context.Context, id identity.Identity) quota.Plan
}

// Directory is the part of service.DirectoryService the handler needs.
type Directory interface {
	EnsureUser(ctx context.Context, id identity.Identity) (*model.User, error)
	Get(ctx context.Context, id identity.Identity) (*model.User, error)
}

var (
	_ Usage     = (*quota.Resolver)(nil)
	_ Directory = (*service.DirectoryService)(nil)
)

// UserHandler serves the caller's plan, usage and directory record.
type UserHandler struct {
	usage     Usage
	directory Directory
	logger    *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(usage Usage, directory Directory, logger *slog.Logger) *UserHandler {
	return &UserHandler{usage: usage, directory: directory, logger: logger}
}

type planResponse struct {
	Plan quota.Plan `json:"plan"`
}

type userResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
}

// HandlePlan reports the caller's plan. It always answers 200; anonymous
// callers and lookup failures both show as "free".
//
// HTTP: GET /api/user/plan
func (h *UserHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	writeJSON(w, http.StatusOK, planResponse{Plan: h.usage.PlanForDisplay(r.Context(), id)})
}

// HandleUsage reports month-to-date usage against the caller's limit.
//
// HTTP: GET /api/user/usage
// RESPONSE: {"plan":"free","usageCount":1,"limit":2,"remaining":1,"canSolve":true}
func (h *UserHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	usage, err := h.usage.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to fetch usage data")
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// HandleSync creates the caller's directory record on first sight and
// returns it.
//
// HTTP: POST /api/user/sync
func (h *UserHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	user, err := h.directory.EnsureUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to sync user")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// HandleMe returns the caller's directory record.
//
// HTTP: GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	user, err := h.directory.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}
