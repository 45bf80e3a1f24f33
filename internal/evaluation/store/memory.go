package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"clave/internal/evaluation/models"
)

// InMemory keeps evaluations in a map guarded by a mutex. It backs unit tests
// and credential-free development; it favors clarity over performance.
type InMemory struct {
	mu    sync.RWMutex
	seq   int64
	evals map[uuid.UUID]*memoryRecord
}

type memoryRecord struct {
	eval *models.Evaluation
	// seq breaks timestamp ties so list order stays stable.
	seq int64
}

func NewInMemory() *InMemory {
	return &InMemory{evals: make(map[uuid.UUID]*memoryRecord)}
}

func (s *InMemory) Create(_ context.Context, eval *models.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.evals[eval.ID] = &memoryRecord{eval: cloneEvaluation(eval), seq: s.seq}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.evals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEvaluation(rec.eval), nil
}

func (s *InMemory) List(_ context.Context, filter ListFilter) ([]*models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.sortedMatches(filter)
	matched = applyWindow(matched, filter)

	out := make([]*models.Evaluation, 0, len(matched))
	for _, rec := range matched {
		out = append(out, cloneEvaluation(rec.eval))
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, filter ListFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.sortedMatches(filter)
	n := len(matched)
	if filter.LastN != nil && filter.StartDate == nil && filter.EndDate == nil && n > *filter.LastN {
		n = *filter.LastN
	}
	return n, nil
}

func (s *InMemory) RecentIDs(_ context.Context, n int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.sortedMatches(ListFilter{})
	if len(matched) > n {
		matched = matched[:n]
	}
	ids := make([]uuid.UUID, 0, len(matched))
	for _, rec := range matched {
		ids = append(ids, rec.eval.ID)
	}
	return ids, nil
}

func (s *InMemory) Update(_ context.Context, eval *models.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.evals[eval.ID]
	if !ok {
		return ErrNotFound
	}
	rec.eval = cloneEvaluation(eval)
	return nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evals[id]; !ok {
		return ErrNotFound
	}
	// Action items are embedded in the record, so the cascade is implicit.
	delete(s.evals, id)
	return nil
}

func (s *InMemory) FindAction(_ context.Context, id uuid.UUID) (*models.ActionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.evals {
		for i := range rec.eval.Actions {
			if rec.eval.Actions[i].ID == id {
				action := rec.eval.Actions[i]
				return &action, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) UpdateAction(_ context.Context, action *models.ActionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.evals[action.EvaluationID]
	if !ok {
		return ErrNotFound
	}
	for i := range rec.eval.Actions {
		if rec.eval.Actions[i].ID == action.ID {
			rec.eval.Actions[i] = *action
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemory) ScoreSamples(_ context.Context, limit int) ([]models.ScoreSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.sortedMatches(ListFilter{})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	// matched is newest first; the series goes out oldest first.
	samples := make([]models.ScoreSample, 0, len(matched))
	for i := len(matched) - 1; i >= 0; i-- {
		samples = append(samples, models.ScoreSample{
			Timestamp: matched[i].eval.TimestampUTC(),
			Score:     matched[i].eval.TotalScore,
		})
	}
	return samples, nil
}

// sortedMatches returns records matching the date filter, newest first.
func (s *InMemory) sortedMatches(filter ListFilter) []*memoryRecord {
	matched := make([]*memoryRecord, 0, len(s.evals))
	for _, rec := range s.evals {
		ts := rec.eval.TimestampUTC()
		if filter.StartDate != nil && ts.Before(filter.StartDate.UTC()) {
			continue
		}
		if filter.EndDate != nil && ts.After(filter.EndDate.UTC()) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i].eval.TimestampUTC(), matched[j].eval.TimestampUTC()
		if ti.Equal(tj) {
			return matched[i].seq > matched[j].seq
		}
		return ti.After(tj)
	})
	return matched
}

// applyWindow applies the last-N cap and skip/limit pagination to a
// newest-first slice, mirroring the history query semantics.
func applyWindow(matched []*memoryRecord, filter ListFilter) []*memoryRecord {
	if filter.LastN != nil && filter.StartDate == nil && filter.EndDate == nil && len(matched) > *filter.LastN {
		matched = matched[:*filter.LastN]
	}
	if filter.Skip > 0 {
		if filter.Skip >= len(matched) {
			return nil
		}
		matched = matched[filter.Skip:]
	}
	if filter.Limit != nil && len(matched) > *filter.Limit {
		matched = matched[:*filter.Limit]
	}
	return matched
}

func cloneEvaluation(eval *models.Evaluation) *models.Evaluation {
	cp := *eval
	cp.Actions = make([]models.ActionItem, len(eval.Actions))
	copy(cp.Actions, eval.Actions)
	return &cp
}
