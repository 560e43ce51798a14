// Package handler exposes the simulated document-upload surface used in
// development. Production deployments receive uploads directly at the storage
// provider; this endpoint stands in for that provider's arrival notification.
package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/documents"
	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/httputil"
)

// Handler records document arrivals against the in-memory tracker.
type Handler struct {
	tracker     *documents.InMemoryTracker
	invalidator documents.Invalidator
	logger      *slog.Logger
}

// New constructs the upload handler. invalidator may be nil when no caching
// decorator is in front of the tracker.
func New(tracker *documents.InMemoryTracker, invalidator documents.Invalidator, logger *slog.Logger) *Handler {
	return &Handler{tracker: tracker, invalidator: invalidator, logger: logger}
}

// Register mounts document endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents/{lead_id}/{category}", h.HandleUpload)
	r.Get("/documents/{lead_id}", h.HandleCheck)
}

// HandleUpload handles POST /documents/{lead_id}/{category} requests.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID := chi.URLParam(r, "lead_id")
	category := chi.URLParam(r, "category")

	if !slices.Contains(documents.Categories(), category) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown document category: %q", category))
		return
	}

	h.tracker.RecordUpload(leadID, category)
	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx, leadID); err != nil {
			// The cache entry expires on its own; log and move on.
			h.logger.WarnContext(ctx, "document cache invalidation failed",
				"lead_id", leadID,
				"error", err.Error(),
			)
		}
	}

	h.logger.InfoContext(ctx, "document received",
		"lead_id", leadID,
		"category", category,
	)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"lead_id":  leadID,
		"category": category,
		"status":   "received",
	})
}

// HandleCheck handles GET /documents/{lead_id} requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.tracker.CheckDocuments(r.Context(), chi.URLParam(r, "lead_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeCollaboratorUnavailable, "document check failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
