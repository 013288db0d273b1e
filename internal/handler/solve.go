package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/service"
)

// Solver is the part of service.SolveService the handler needs.
type Solver interface {
	Solve(ctx context.Context, id identity.Identity, req service.SolveRequest) (*service.SolveResult, error)
}

var _ Solver = (*service.SolveService)(nil)

// SolveHandler serves POST /api/solve.
type SolveHandler struct {
	solver Solver
	logger *slog.Logger
}

// NewSolveHandler creates a SolveHandler.
func NewSolveHandler(solver Solver, logger *slog.Logger) *SolveHandler {
	return &SolveHandler{solver: solver, logger: logger}
}

type solveResponse struct {
	Success       bool   `json:"success"`
	Solution      string `json:"solution"`
	ProblemNumber int    `json:"problemNumber"`
}

// HandleSolve explains a math problem and archives the answer.
//
// HTTP: POST /api/solve
// REQUEST BODY: {"type": "text", "content": "2+2"}
//
//	{"type": "image", "content": "data:image/png;base64,...", "mimeType": "image/png"}
//
// RESPONSE: {"success": true, "solution": "...", "problemNumber": 3}
func (h *SolveHandler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	var req service.SolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid solve request body", slog.String("error", err.Error()))
		writeError(w, h.logger, err, service.SolveFailedMessage)
		return
	}

	res, err := h.solver.Solve(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, err, service.SolveFailedMessage)
		return
	}

	writeJSON(w, http.StatusOK, solveResponse{
		Success:       true,
		Solution:      res.Solution,
		ProblemNumber: res.ProblemNumber,
	})
}
