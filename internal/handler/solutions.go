package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/model"
	"github.com/sakif/stepwise/internal/present"
	"github.com/sakif/stepwise/internal/service"
)

// Archive is the part of service.ArchiveService the handler needs.
type Archive interface {
	List(ctx context.Context, id identity.Identity) ([]model.Solution, error)
	Get(ctx context.Context, id identity.Identity, number int) (*model.Solution, error)
}

var _ Archive = (*service.ArchiveService)(nil)

// SolutionsHandler serves the caller's archive.
type SolutionsHandler struct {
	archive Archive
	logger  *slog.Logger
}

// NewSolutionsHandler creates a SolutionsHandler.
func NewSolutionsHandler(archive Archive, logger *slog.Logger) *SolutionsHandler {
	return &SolutionsHandler{archive: archive, logger: logger}
}

type listResponse struct {
	Success   bool             `json:"success"`
	Solutions []model.Solution `json:"solutions"`
}

type detailResponse struct {
	Success  bool              `json:"success"`
	Solution *model.Solution   `json:"solution"`
	Sections []present.Section `json:"sections"`
}

// HandleList returns every solution the caller owns, highest problem number
// first.
//
// HTTP: GET /api/solutions
func (h *SolutionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	solutions, err := h.archive.List(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to fetch solutions")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Solutions: solutions})
}

// HandleGet returns one solution with its explanation split into sections.
//
// HTTP: GET /api/solutions/{problemNumber}
func (h *SolutionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	number, err := strconv.Atoi(chi.URLParam(r, "problemNumber"))
	if err != nil {
		writeError(w, h.logger,
			apperror.ValidationFailed("problemNumber", "problem number must be a positive integer"),
			"Failed to fetch solution")
		return
	}

	solution, err := h.archive.Get(r.Context(), id, number)
	if err != nil {
		writeError(w, h.logger, err, "Failed to fetch solution")
		return
	}

	doc := present.Parse(solution.Solution)
	writeJSON(w, http.StatusOK, detailResponse{
		Success:  true,
		Solution: solution,
		Sections: doc.Sections,
	})
}
