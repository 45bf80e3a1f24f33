// Package service implements the evaluation lifecycle: scoring a submission,
// persisting it atomically with its action items, and funnelling every later
// mutation through the guard.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clave/internal/auth"
	"clave/internal/evaluation/guard"
	evalmetrics "clave/internal/evaluation/metrics"
	"clave/internal/evaluation/models"
	"clave/internal/evaluation/store"
	"clave/internal/protocol"
	dErrors "clave/pkg/domain-errors"
	"clave/pkg/requestcontext"
)

// Preview is a scoring dry run: the verdict and prescriptions for a set of
// inputs, with nothing persisted.
type Preview struct {
	Result           protocol.Result
	Measures         []string
	ReevaluationNote string
}

// CreateInput carries one protocol activation submission.
type CreateInput struct {
	Input         protocol.Input
	Timestamp     time.Time
	EvaluatorName string
	// InputData is the serialized submission snapshot, stored verbatim.
	InputData string
}

// Page is one page of evaluation history plus the total count under the same
// filter.
type Page struct {
	Evaluations []*models.Evaluation
	Total       int
}

// Service coordinates the evaluation lifecycle against the store and guard.
type Service struct {
	store   store.EvaluationStore
	metrics *evalmetrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

func New(st store.EvaluationStore, m *evalmetrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("clave/evaluation"),
	}
}

// PreviewScore scores the inputs and assembles the measure list without
// persisting anything. Any authenticated role may call it.
func (s *Service) PreviewScore(ctx context.Context, in protocol.Input) (*Preview, error) {
	start := time.Now()
	result, err := protocol.Score(in)
	if err != nil {
		return nil, err
	}
	measures, err := protocol.MeasuresFor(result.Level)
	if err != nil {
		return nil, err
	}
	note, err := protocol.ReevaluationNoteFor(result.Level)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveScoreLatency(time.Since(start))
	return &Preview{Result: result, Measures: measures, ReevaluationNote: note}, nil
}

// Create scores the submission and persists the evaluation together with one
// action item per prescribed measure, as a single unit. Viewers may not
// activate protocols; the timestamp must not be in the future, and non-admin
// editors may not backdate past the edit window.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Evaluation, string, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.Create")
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, "", err
	}
	if actor.Role == auth.RoleViewer {
		s.metrics.IncrementDenied(string(guard.ReasonRoleForbidden))
		return nil, "", dErrors.NewWithReason(dErrors.CodeForbidden, string(guard.ReasonRoleForbidden), "viewers may not activate protocols")
	}

	now := requestcontext.Now(ctx)
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	if d := guard.CheckNewTimestamp(actor, ts, now); !d.Allowed {
		s.metrics.IncrementDenied(string(d.Reason))
		return nil, "", dErrors.NewWithReason(dErrors.CodeBadRequest, string(d.Reason), d.Detail)
	}

	preview, err := s.PreviewScore(ctx, in.Input)
	if err != nil {
		return nil, "", err
	}

	eval := models.NewEvaluation(
		uuid.New(), ts, in.Input.Scenario, preview.Result,
		actor.ID, in.EvaluatorName, in.InputData, preview.Measures,
	)
	if err := s.store.Create(ctx, eval); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist evaluation")
	}

	span.SetAttributes(
		attribute.String("evaluation.id", eval.ID.String()),
		attribute.String("evaluation.alert_level", string(eval.AlertLevel)),
		attribute.Int("evaluation.score", eval.TotalScore),
	)
	s.metrics.IncrementCreated(string(eval.AlertLevel))
	s.logger.InfoContext(ctx, "protocol activated",
		"evaluation_id", eval.ID,
		"alert_level", eval.AlertLevel,
		"score", eval.TotalScore,
		"forced_escalation", eval.ForcedEscalation,
	)
	return eval, preview.ReevaluationNote, nil
}

// Get returns one evaluation with its action items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Evaluation, error) {
	eval, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapEvalErr(err)
	}
	return eval, nil
}

// List returns a history page plus the total count under the same filter.
func (s *Service) List(ctx context.Context, filter store.ListFilter) (*Page, error) {
	if filter.Skip < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "skip must not be negative")
	}
	if filter.Limit != nil && *filter.Limit < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "limit must not be negative")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "end date must not precede start date")
	}
	evals, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evaluations")
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count evaluations")
	}
	return &Page{Evaluations: evals, Total: total}, nil
}

// Update applies a guarded partial update to an evaluation.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch models.Patch) (*models.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.Update")
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	eval, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapEvalErr(err)
	}

	now := requestcontext.Now(ctx)
	recent, err := s.recentIDs(ctx)
	if err != nil {
		return nil, err
	}
	if d := guard.CanMutateEvaluation(actor, eval, recent, guard.OpUpdate, now); !d.Allowed {
		return nil, s.denied(ctx, d, "update", eval.ID)
	}
	if patch.Timestamp != nil {
		if d := guard.CheckNewTimestamp(actor, *patch.Timestamp, now); !d.Allowed {
			s.metrics.IncrementDenied(string(d.Reason))
			return nil, dErrors.NewWithReason(dErrors.CodeBadRequest, string(d.Reason), d.Detail)
		}
	}

	if err := eval.Apply(patch); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, eval); err != nil {
		return nil, wrapEvalErr(err)
	}

	s.logger.InfoContext(ctx, "evaluation updated", "evaluation_id", eval.ID)
	return eval, nil
}

// Delete removes an evaluation and, with it, every owned action item.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "evaluation.Delete")
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	eval, err := s.store.FindByID(ctx, id)
	if err != nil {
		return wrapEvalErr(err)
	}

	recent, err := s.recentIDs(ctx)
	if err != nil {
		return err
	}
	if d := guard.CanMutateEvaluation(actor, eval, recent, guard.OpDelete, requestcontext.Now(ctx)); !d.Allowed {
		return s.denied(ctx, d, "delete", eval.ID)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return wrapEvalErr(err)
	}
	s.logger.InfoContext(ctx, "evaluation deleted", "evaluation_id", id)
	return nil
}

// UpdateActionStatus writes a new status onto one action item, subject to the
// guard's recency gate.
func (s *Service) UpdateActionStatus(ctx context.Context, actionID uuid.UUID, status models.ActionStatus) (*models.ActionItem, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.UpdateActionStatus")
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	action, err := s.store.FindAction(ctx, actionID)
	if err != nil {
		return nil, wrapActionErr(err)
	}
	eval, err := s.store.FindByID(ctx, action.EvaluationID)
	if err != nil {
		return nil, wrapEvalErr(err)
	}

	recent, err := s.recentIDs(ctx)
	if err != nil {
		return nil, err
	}
	if d := guard.CanMutateActionItem(actor, eval, recent, requestcontext.Now(ctx)); !d.Allowed {
		return nil, s.denied(ctx, d, "update action of", eval.ID)
	}

	if err := action.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAction(ctx, action); err != nil {
		return nil, wrapActionErr(err)
	}

	s.metrics.IncrementActionUpdate(string(action.Status))
	s.logger.InfoContext(ctx, "action item updated",
		"action_id", action.ID,
		"evaluation_id", action.EvaluationID,
		"status", action.Status,
	)
	return action, nil
}

// ScoreSamples returns the ascending (timestamp, score) series for the
// forecasting collaborator. limit <= 0 means the full series.
func (s *Service) ScoreSamples(ctx context.Context, limit int) ([]models.ScoreSample, error) {
	samples, err := s.store.ScoreSamples(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to collect score samples")
	}
	return samples, nil
}

func (s *Service) recentIDs(ctx context.Context) ([]uuid.UUID, error) {
	recent, err := s.store.RecentIDs(ctx, guard.RecentWindowSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve recency window")
	}
	return recent, nil
}

// denied translates a guard denial into a tagged domain error, counting and
// logging it on the way out.
func (s *Service) denied(ctx context.Context, d guard.Decision, op string, evalID uuid.UUID) error {
	s.metrics.IncrementDenied(string(d.Reason))
	s.logger.WarnContext(ctx, "mutation denied",
		"operation", op,
		"evaluation_id", evalID,
		"reason", d.Reason,
	)
	return dErrors.NewWithReason(dErrors.CodeForbidden, string(d.Reason), d.Detail)
}

// actorFrom extracts the authenticated actor from the request context.
func actorFrom(ctx context.Context) (auth.Actor, error) {
	id := requestcontext.UserID(ctx)
	if id == uuid.Nil {
		return auth.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	role, err := auth.ParseRole(requestcontext.UserRole(ctx))
	if err != nil {
		return auth.Actor{}, dErrors.New(dErrors.CodeUnauthorized, fmt.Sprintf("invalid role on request: %v", err))
	}
	return auth.Actor{ID: id, Role: role}, nil
}

func wrapEvalErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "evaluation not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "evaluation store failure")
}

func wrapActionErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "action item not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "action item store failure")
}
