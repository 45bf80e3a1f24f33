// Package store persists evaluations and their action items. The interface is
// deliberately narrow so the in-memory and postgres implementations stay
// interchangeable and the service never learns SQL.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clave/internal/evaluation/models"
	dErrors "clave/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// ListFilter narrows and pages evaluation history queries.
//
// LastN mirrors the history API: it caps the result to the N most recent
// evaluations and applies only when no date range is given; Skip/Limit then
// page within that window. Count follows the same rule.
type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Skip      int
	Limit     *int
	LastN     *int
}

// EvaluationStore is the repository capability the lifecycle coordinator
// consumes. Create persists an evaluation and all its action items as one
// unit; Delete cascades to the action items.
type EvaluationStore interface {
	Create(ctx context.Context, eval *models.Evaluation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Evaluation, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	// RecentIDs returns the ids of the n most recently timestamped
	// evaluations, newest first. The guard's recency gate is computed from
	// this, fresh on every request.
	RecentIDs(ctx context.Context, n int) ([]uuid.UUID, error)
	Update(ctx context.Context, eval *models.Evaluation) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindAction(ctx context.Context, id uuid.UUID) (*models.ActionItem, error)
	UpdateAction(ctx context.Context, action *models.ActionItem) error

	// ScoreSamples returns the (timestamp, score) series in ascending
	// timestamp order for the forecasting collaborator. limit <= 0 means all.
	ScoreSamples(ctx context.Context, limit int) ([]models.ScoreSample, error)
}
