package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clave/internal/evaluation/models"
	"clave/internal/protocol"
)

// Schema creates the evaluation tables. Action items hang off their
// evaluation with ON DELETE CASCADE, which is what makes evaluation deletes
// all-or-nothing at the database level.
const Schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id UUID PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	protocol_type TEXT NOT NULL,
	scenario TEXT NOT NULL,
	total_score INT NOT NULL,
	alert_level TEXT NOT NULL,
	forced_escalation BOOLEAN NOT NULL DEFAULT FALSE,
	evaluator_id UUID NOT NULL,
	evaluator_name TEXT NOT NULL DEFAULT '',
	input_data TEXT NOT NULL DEFAULT '',
	evaluation_results TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_evaluations_ts ON evaluations (ts DESC);

CREATE TABLE IF NOT EXISTS action_items (
	id UUID PRIMARY KEY,
	evaluation_id UUID NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
	measure_description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'not_applied',
	original_order_index INT NOT NULL,
	UNIQUE (evaluation_id, original_order_index)
);
`

// Postgres persists evaluations in PostgreSQL through pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure evaluation schema: %w", err)
	}
	return nil
}

const evaluationColumns = `id, ts, protocol_type, scenario, total_score, alert_level, forced_escalation, evaluator_id, evaluator_name, input_data, evaluation_results`

// Create inserts the evaluation and every action item inside one transaction
// so a failure partway through leaves nothing behind.
func (s *Postgres) Create(ctx context.Context, eval *models.Evaluation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create evaluation: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO evaluations (`+evaluationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		eval.ID, eval.TimestampUTC(), eval.ProtocolType, string(eval.Scenario),
		eval.TotalScore, string(eval.AlertLevel), eval.ForcedEscalation,
		eval.EvaluatorID, eval.EvaluatorName, eval.InputData, eval.EvaluationResults,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}

	for _, action := range eval.Actions {
		_, err = tx.Exec(ctx, `
			INSERT INTO action_items (id, evaluation_id, measure_description, status, original_order_index)
			VALUES ($1, $2, $3, $4, $5)`,
			action.ID, action.EvaluationID, action.MeasureDescription, string(action.Status), action.OriginalOrderIndex,
		)
		if err != nil {
			return fmt.Errorf("insert action item %d: %w", action.OriginalOrderIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create evaluation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id)
	eval, err := scanEvaluation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find evaluation: %w", err)
	}
	if err := s.loadActions(ctx, eval); err != nil {
		return nil, err
	}
	return eval, nil
}

func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]*models.Evaluation, error) {
	query, args := buildListQuery(`SELECT `+evaluationColumns+` FROM evaluations`, filter, true)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*models.Evaluation
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		evals = append(evals, eval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	for _, eval := range evals {
		if err := s.loadActions(ctx, eval); err != nil {
			return nil, err
		}
	}
	return evals, nil
}

func (s *Postgres) Count(ctx context.Context, filter ListFilter) (int, error) {
	// The last-N window caps the count only when no date range narrows the
	// query, mirroring List.
	if filter.LastN != nil && filter.StartDate == nil && filter.EndDate == nil {
		var count int
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM (SELECT 1 FROM evaluations ORDER BY ts DESC LIMIT $1) w`,
			*filter.LastN,
		).Scan(&count)
		if err != nil {
			return 0, fmt.Errorf("count evaluations: %w", err)
		}
		return count, nil
	}

	query, args := buildListQuery(`SELECT COUNT(*) FROM evaluations`, ListFilter{StartDate: filter.StartDate, EndDate: filter.EndDate}, false)
	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}

func (s *Postgres) RecentIDs(ctx context.Context, n int) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM evaluations ORDER BY ts DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("recent evaluation ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan evaluation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, eval *models.Evaluation) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE evaluations
		SET ts = $2, total_score = $3, alert_level = $4, input_data = $5, evaluation_results = $6
		WHERE id = $1`,
		eval.ID, eval.TimestampUTC(), eval.TotalScore, string(eval.AlertLevel), eval.InputData, eval.EvaluationResults,
	)
	if err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM evaluations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) FindAction(ctx context.Context, id uuid.UUID) (*models.ActionItem, error) {
	var action models.ActionItem
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, evaluation_id, measure_description, status, original_order_index
		FROM action_items WHERE id = $1`, id,
	).Scan(&action.ID, &action.EvaluationID, &action.MeasureDescription, &status, &action.OriginalOrderIndex)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find action item: %w", err)
	}
	action.Status = models.ActionStatus(status)
	return &action, nil
}

func (s *Postgres) UpdateAction(ctx context.Context, action *models.ActionItem) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE action_items SET status = $2 WHERE id = $1`,
		action.ID, string(action.Status),
	)
	if err != nil {
		return fmt.Errorf("update action item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ScoreSamples(ctx context.Context, limit int) ([]models.ScoreSample, error) {
	query := `SELECT ts, total_score FROM evaluations ORDER BY ts DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("score samples: %w", err)
	}
	defer rows.Close()

	var samples []models.ScoreSample
	for rows.Next() {
		var sample models.ScoreSample
		if err := rows.Scan(&sample.Timestamp, &sample.Score); err != nil {
			return nil, fmt.Errorf("scan score sample: %w", err)
		}
		sample.Timestamp = sample.Timestamp.UTC()
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse the newest-first query into the ascending series the
	// forecasting collaborator expects.
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

func (s *Postgres) loadActions(ctx context.Context, eval *models.Evaluation) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, evaluation_id, measure_description, status, original_order_index
		FROM action_items WHERE evaluation_id = $1
		ORDER BY original_order_index`, eval.ID)
	if err != nil {
		return fmt.Errorf("load action items: %w", err)
	}
	defer rows.Close()

	eval.Actions = eval.Actions[:0]
	for rows.Next() {
		var action models.ActionItem
		var status string
		if err := rows.Scan(&action.ID, &action.EvaluationID, &action.MeasureDescription, &status, &action.OriginalOrderIndex); err != nil {
			return fmt.Errorf("scan action item: %w", err)
		}
		action.Status = models.ActionStatus(status)
		eval.Actions = append(eval.Actions, action)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row rowScanner) (*models.Evaluation, error) {
	var eval models.Evaluation
	var scenario, level string
	err := row.Scan(
		&eval.ID, &eval.Timestamp, &eval.ProtocolType, &scenario, &eval.TotalScore,
		&level, &eval.ForcedEscalation, &eval.EvaluatorID, &eval.EvaluatorName,
		&eval.InputData, &eval.EvaluationResults,
	)
	if err != nil {
		return nil, err
	}
	eval.Timestamp = eval.Timestamp.UTC()
	eval.Scenario = protocol.Scenario(scenario)
	eval.AlertLevel = protocol.AlertLevel(level)
	return &eval, nil
}

// buildListQuery assembles the WHERE/ORDER/pagination clauses shared by List
// and Count. The last-N window is applied as a subquery so skip/limit page
// within the window rather than before it.
func buildListQuery(base string, filter ListFilter, ordered bool) (string, []any) {
	query := base
	args := []any{}
	where := ""
	if filter.StartDate != nil {
		args = append(args, filter.StartDate.UTC())
		where = fmt.Sprintf(" WHERE ts >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, filter.EndDate.UTC())
		if where == "" {
			where = fmt.Sprintf(" WHERE ts <= $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND ts <= $%d", len(args))
		}
	}
	query += where
	if !ordered {
		return query, args
	}
	query += " ORDER BY ts DESC"

	if filter.LastN != nil && filter.StartDate == nil && filter.EndDate == nil {
		args = append(args, *filter.LastN)
		query = fmt.Sprintf("SELECT * FROM (%s LIMIT $%d) w ORDER BY ts DESC", query, len(args))
	}
	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
