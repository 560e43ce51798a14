// Package handler wires lead intake endpoints to the lead store.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/documents"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/metrics"
	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/httputil"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/platform/sentinel"
	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/requestcontext"
)

// Handler exposes the lead intake surface.
type Handler struct {
	store   lead.Store
	gate    *compliance.Gate
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a lead handler with its dependencies.
func New(store lead.Store, gate *compliance.Gate, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		store:   store,
		gate:    gate,
		logger:  logger,
		metrics: m,
	}
}

// Register mounts lead endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/leads", h.HandleCreate)
	r.Get("/leads", h.HandleList)
	r.Get("/leads/{id}", h.HandleGet)
	r.Put("/leads/{id}/stage", h.HandleUpdateStage)
	r.Delete("/leads/{id}", h.HandleDelete)
}

// CreateRequest is the intake payload for a new lead.
type CreateRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Timezone       string `json:"timezone"`
	Relationship   string `json:"relationship"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (r CreateRequest) validate() error {
	if r.FirstName == "" || r.LastName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "first_name and last_name are required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	switch lead.Relationship(r.Relationship) {
	case lead.RelationshipSelf, lead.RelationshipRepresentative, "":
	default:
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid relationship: %q", r.Relationship)
	}
	return nil
}

// HandleCreate handles POST /leads requests. Re-submissions with the same
// idempotency key return the original lead unchanged.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if req.IdempotencyKey != "" {
		existing, err := h.store.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			httputil.WriteJSON(w, http.StatusOK, existing)
			return
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "idempotency lookup failed"))
			return
		}
	}

	relationship := lead.Relationship(req.Relationship)
	if relationship == "" {
		relationship = lead.RelationshipSelf
	}

	now := requestcontext.Now(ctx)
	l := &lead.Lead{
		ID:             uuid.NewString(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Timezone:       req.Timezone,
		Relationship:   relationship,
		Stage:          lead.StageInquiry,
		RequiredDocs:   documents.Categories(),
		ReceivedDocs:   []string{},
		MissingDocs:    documents.Categories(),
		OwnerUserID:    requestcontext.UserID(ctx),
		LastTouch:      now,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		StageHistory:   []lead.StageChange{{Stage: lead.StageInquiry, EnteredAt: now}},
	}

	if err := h.store.Create(ctx, l); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a lead with this email or phone already exists"))
			return
		}
		h.logger.ErrorContext(ctx, "lead create failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to create lead"))
		return
	}

	h.metrics.IncrementLeadsCreated()
	h.logger.InfoContext(ctx, "lead created",
		"request_id", requestID,
		"lead_id", l.ID,
		"stage", l.Stage,
	)
	httputil.WriteJSON(w, http.StatusCreated, l)
}

// HandleGet handles GET /leads/{id} requests. Every read of a lead record is
// PHI access and lands in the audit trail.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID := chi.URLParam(r, "id")

	l, err := h.store.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "lead %s not found", leadID))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to load lead"))
		return
	}

	h.gate.AuditAccess(ctx, l.ID, requestcontext.UserID(ctx), "lead_read", map[string]string{
		"stage": l.Stage.String(),
	})
	httputil.WriteJSON(w, http.StatusOK, l)
}

// StageRequest is the payload for a staff-driven stage transition.
type StageRequest struct {
	Stage string `json:"stage"`
}

// HandleUpdateStage handles PUT /leads/{id}/stage requests. Stages past
// docs_received have no automated transition; clinical review, consult
// readiness, scheduling, and the enrollment decision are committed here by
// staff. Entering clinical_review or beyond is PHI work, so the compliance
// gate runs before the model's own preconditions.
func (h *Handler) HandleUpdateStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID := chi.URLParam(r, "id")
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[StageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	target, err := lead.ParseStage(req.Stage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	unlock := h.store.Lock(leadID)
	defer unlock()

	l, err := h.store.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "lead %s not found", leadID))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to load lead"))
		return
	}

	if target.AtLeast(lead.StageClinicalReview) {
		if err := h.gate.RequirePHIAccess(l, "stage_transition"); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	from := l.Stage
	if err := l.TransitionTo(target, requestcontext.Now(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.Update(ctx, l); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist stage transition"))
		return
	}

	h.gate.AuditAccess(ctx, l.ID, requestcontext.UserID(ctx), "stage_transition", map[string]string{
		"from_stage": from.String(),
		"to_stage":   target.String(),
	})
	h.metrics.IncrementStageTransition(from.String(), target.String())
	h.logger.InfoContext(ctx, "lead stage updated",
		"request_id", requestID,
		"lead_id", l.ID,
		"from_stage", from,
		"to_stage", target,
	)
	httputil.WriteJSON(w, http.StatusOK, l)
}

// HandleList handles GET /leads requests, optionally filtered by stage.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		leads []*lead.Lead
		err   error
	)
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage, perr := lead.ParseStage(raw)
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		leads, err = h.store.ListByStage(ctx, stage)
	} else {
		leads, err = h.store.List(ctx)
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list leads"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
	})
}

// HandleDelete handles DELETE /leads/{id} requests. Purges are audited with
// the acting user before the record disappears.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID := chi.URLParam(r, "id")
	userID := requestcontext.UserID(ctx)

	l, err := h.store.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "lead %s not found", leadID))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to load lead"))
		return
	}

	h.gate.AuditAccess(ctx, l.ID, userID, "lead_purge", map[string]string{
		"stage":      l.Stage.String(),
		"created_at": l.CreatedAt.Format(time.RFC3339),
	})

	if err := h.store.Delete(ctx, leadID); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to delete lead"))
		return
	}

	h.logger.InfoContext(ctx, "lead purged",
		"lead_id", leadID,
		"user_id", userID,
	)
	w.WriteHeader(http.StatusNoContent)
}
