// Package handler exposes the evaluation lifecycle over HTTP. It stays thin:
// decode, delegate, translate errors.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clave/internal/evaluation/models"
	"clave/internal/evaluation/service"
	"clave/internal/evaluation/store"
	"clave/internal/jwttoken"
	"clave/internal/platform/middleware"
	"clave/internal/protocol"
	"clave/internal/transport/http/shared"
	dErrors "clave/pkg/domain-errors"
)

// Service is the lifecycle capability the handler consumes.
type Service interface {
	PreviewScore(ctx context.Context, in protocol.Input) (*service.Preview, error)
	Create(ctx context.Context, in service.CreateInput) (*models.Evaluation, string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Evaluation, error)
	List(ctx context.Context, filter store.ListFilter) (*service.Page, error)
	Update(ctx context.Context, id uuid.UUID, patch models.Patch) (*models.Evaluation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateActionStatus(ctx context.Context, actionID uuid.UUID, status models.ActionStatus) (*models.ActionItem, error)
	ScoreSamples(ctx context.Context, limit int) ([]models.ScoreSample, error)
}

// Handler handles evaluation endpoints.
type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register mounts the evaluation routes. The caller applies authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/protocol/score", h.handleScore)
	r.Post("/evaluations", h.handleCreate)
	r.Get("/evaluations", h.handleList)
	r.Get("/evaluations/samples", h.handleSamples)
	r.Get("/evaluations/{id}", h.handleGet)
	r.Put("/evaluations/{id}", h.handleUpdate)
	r.Delete("/evaluations/{id}", h.handleDelete)
	r.Put("/actions/{id}", h.handleUpdateAction)
}

// RegisterReport mounts the read-only routes a temporary report token may
// reach: one evaluation, rendered for sharing.
func (h *Handler) RegisterReport(r chi.Router) {
	r.Get("/reports/evaluations/{id}", h.handleReportGet)
}

// handleReportGet serves one evaluation for report rendering. Report-scoped
// tokens are pinned to a single evaluation and cannot read any other.
func (h *Handler) handleReportGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if claims := middleware.ClaimsFrom(r.Context()); claims != nil &&
		claims.Scope == jwttoken.ScopeReport && claims.EvaluationID != id.String() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "report token not valid for this evaluation"))
		return
	}
	eval, err := h.svc.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, eval)
}

// handleScore scores a submission without persisting anything.
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	in, err := req.toInput()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	preview, err := h.svc.PreviewScore(r.Context(), in)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, scoreResponse{
		TotalScore:       preview.Result.Score,
		AlertLevel:       string(preview.Result.Level),
		ForcedEscalation: preview.Result.ForcedEscalation,
		Measures:         preview.Measures,
		ReevaluationNote: preview.ReevaluationNote,
	})
}

// handleCreate activates the protocol: scores, persists, and returns the new
// evaluation with its generated action items.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	in, err := req.toInput()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	create := service.CreateInput{
		Input:         in,
		EvaluatorName: req.EvaluatorName,
		InputData:     req.InputData,
	}
	if req.Timestamp != nil {
		create.Timestamp = *req.Timestamp
	}
	if create.InputData == "" {
		// Default snapshot: the submission itself.
		raw, _ := json.Marshal(req.scoreRequest)
		create.InputData = string(raw)
	}

	eval, note, err := h.svc.Create(r.Context(), create)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, createEvaluationResponse{Evaluation: eval, ReevaluationNote: note})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	page, err := h.svc.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	items := page.Evaluations
	if items == nil {
		items = []*models.Evaluation{}
	}
	shared.WriteJSON(w, http.StatusOK, listEvaluationsResponse{Items: items, Total: page.Total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	eval, err := h.svc.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, eval)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	eval, err := h.svc.Update(r.Context(), id, req.toPatch())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, eval)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	action, err := h.svc.UpdateActionStatus(r.Context(), id, models.ActionStatus(req.Status))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, action)
}

// handleSamples serves the (timestamp, score) series consumed by the
// saturation forecasting collaborator.
func (h *Handler) handleSamples(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	samples, err := h.svc.ScoreSamples(r.Context(), limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if samples == nil {
		samples = []models.ScoreSample{}
	}
	shared.WriteJSON(w, http.StatusOK, samplesResponse{Samples: samples})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}

func parseListFilter(r *http.Request) (store.ListFilter, error) {
	q := r.URL.Query()
	var filter store.ListFilter

	if raw := q.Get("start_date"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "start_date must be RFC 3339")
		}
		filter.StartDate = &ts
	}
	if raw := q.Get("end_date"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "end_date must be RFC 3339")
		}
		filter.EndDate = &ts
	}
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "skip must be a non-negative integer")
		}
		filter.Skip = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		filter.Limit = &n
	}
	if raw := q.Get("last_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "last_n must be a non-negative integer")
		}
		filter.LastN = &n
	}
	return filter, nil
}
