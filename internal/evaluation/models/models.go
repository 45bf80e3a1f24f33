// Package models defines the evaluation aggregate: one persisted protocol
// activation plus the ordered action items generated from its measure list.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"clave/internal/protocol"
	dErrors "clave/pkg/domain-errors"
)

// ProtocolMedicoQuirurgico is the protocol type this service evaluates.
const ProtocolMedicoQuirurgico = "medico_quirurgico"

// ActionStatus tracks execution of one prescribed measure. Transitions are
// deliberately unconstrained: any status may be written over any other, the
// mutation guard is the only gatekeeper.
type ActionStatus string

const (
	StatusNotApplied ActionStatus = "not_applied"
	StatusInProcess  ActionStatus = "in_process"
	StatusApplied    ActionStatus = "applied"
)

func (s ActionStatus) Valid() bool {
	return s == StatusNotApplied || s == StatusInProcess || s == StatusApplied
}

// ActionItem is one prescribed mitigation measure owned by an evaluation.
// OriginalOrderIndex fixes display order at creation time and is never
// renumbered, regardless of later status changes.
type ActionItem struct {
	ID                 uuid.UUID    `json:"id"`
	EvaluationID       uuid.UUID    `json:"evaluation_id"`
	MeasureDescription string       `json:"measure_description"`
	Status             ActionStatus `json:"status"`
	OriginalOrderIndex int          `json:"original_order_index"`
}

// SetStatus writes a new status. Idempotent writes are allowed.
func (a *ActionItem) SetStatus(s ActionStatus) error {
	if !s.Valid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown action status %q", s))
	}
	a.Status = s
	return nil
}

// Evaluation is one persisted protocol activation together with its owned
// action items. Action items live and die with their evaluation.
type Evaluation struct {
	ID               uuid.UUID           `json:"id"`
	Timestamp        time.Time           `json:"timestamp"`
	ProtocolType     string              `json:"protocol_type"`
	Scenario         protocol.Scenario   `json:"scenario"`
	TotalScore       int                 `json:"total_score"`
	AlertLevel       protocol.AlertLevel `json:"alert_level"`
	ForcedEscalation bool                `json:"forced_escalation"`
	EvaluatorID      uuid.UUID           `json:"evaluator_id"`
	EvaluatorName    string              `json:"evaluator_name"`

	// InputData and EvaluationResults are opaque serialized snapshots: the
	// original submission, and reevaluation metadata added by later
	// workflows. The engine stores them verbatim and never interprets them.
	InputData         string `json:"input_data"`
	EvaluationResults string `json:"evaluation_results,omitempty"`

	Actions []ActionItem `json:"actions"`
}

// TimestampUTC returns the evaluation timestamp normalized to UTC. A naive
// stored timestamp is treated as UTC.
func (e *Evaluation) TimestampUTC() time.Time {
	return e.Timestamp.UTC()
}

// NewEvaluation builds an evaluation with its action items generated from the
// ordered measure list; indexes are contiguous from 0.
func NewEvaluation(id uuid.UUID, ts time.Time, scenario protocol.Scenario, result protocol.Result, evaluatorID uuid.UUID, evaluatorName, inputData string, measures []string) *Evaluation {
	eval := &Evaluation{
		ID:               id,
		Timestamp:        ts.UTC(),
		ProtocolType:     ProtocolMedicoQuirurgico,
		Scenario:         scenario,
		TotalScore:       result.Score,
		AlertLevel:       result.Level,
		ForcedEscalation: result.ForcedEscalation,
		EvaluatorID:      evaluatorID,
		EvaluatorName:    evaluatorName,
		InputData:        inputData,
	}
	eval.Actions = make([]ActionItem, 0, len(measures))
	for i, measure := range measures {
		eval.Actions = append(eval.Actions, ActionItem{
			ID:                 uuid.New(),
			EvaluationID:       id,
			MeasureDescription: measure,
			Status:             StatusNotApplied,
			OriginalOrderIndex: i,
		})
	}
	return eval
}

// Patch carries the fields an evaluation update may change. Nil means "leave
// as is".
type Patch struct {
	Timestamp         *time.Time
	TotalScore        *int
	AlertLevel        *protocol.AlertLevel
	InputData         *string
	EvaluationResults *string
}

// Apply writes the non-nil patch fields onto the evaluation. The alert level
// is validated; the timestamp is expected to have been cleared by the
// mutation guard already.
func (e *Evaluation) Apply(p Patch) error {
	if p.AlertLevel != nil {
		if !p.AlertLevel.Valid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown alert level %q", *p.AlertLevel))
		}
		e.AlertLevel = *p.AlertLevel
	}
	if p.Timestamp != nil {
		e.Timestamp = p.Timestamp.UTC()
	}
	if p.TotalScore != nil {
		e.TotalScore = *p.TotalScore
	}
	if p.InputData != nil {
		e.InputData = *p.InputData
	}
	if p.EvaluationResults != nil {
		e.EvaluationResults = *p.EvaluationResults
	}
	return nil
}

// ScoreSample is one point of the (timestamp, score) series handed to the
// external forecasting collaborator.
type ScoreSample struct {
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`
}
