package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clave/internal/auth"
	"clave/internal/evaluation/models"
	"clave/internal/evaluation/store"
	"clave/internal/protocol"
	dErrors "clave/pkg/domain-errors"
	"clave/pkg/requestcontext"
)

var testNow = time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	store *store.InMemory
	svc   *Service

	adminID  uuid.UUID
	editorID uuid.UUID
	viewerID uuid.UUID
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.svc = New(s.store, nil, nil)
	s.adminID = uuid.New()
	s.editorID = uuid.New()
	s.viewerID = uuid.New()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// ctxFor builds a request context for the given identity, frozen at testNow.
func (s *ServiceSuite) ctxFor(id uuid.UUID, role auth.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), id)
	ctx = requestcontext.WithUserRole(ctx, string(role))
	return requestcontext.WithTime(ctx, testNow)
}

func (s *ServiceSuite) adminCtx() context.Context {
	return s.ctxFor(s.adminID, auth.RoleAdministrator)
}

func elevatedInput() protocol.Input {
	return protocol.Input{
		Scenario:             protocol.ScenarioReducedCapacity,
		HospitalizedPatients: 60,
		CriticalProtocol:     protocol.CriticalNone,
	}
}

// create activates a protocol as the given actor at the given timestamp.
func (s *ServiceSuite) create(ctx context.Context, ts time.Time) *models.Evaluation {
	eval, note, err := s.svc.Create(ctx, CreateInput{
		Input:         elevatedInput(),
		Timestamp:     ts,
		EvaluatorName: "Dra. Prueba",
		InputData:     `{"hospitalized":60}`,
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(note)
	return eval
}

func (s *ServiceSuite) TestPreviewScore() {
	preview, err := s.svc.PreviewScore(s.adminCtx(), elevatedInput())
	s.Require().NoError(err)
	s.Equal(3, preview.Result.Score)
	s.Equal(protocol.LevelYellow, preview.Result.Level)
	s.False(preview.Result.ForcedEscalation)
	s.NotEmpty(preview.Measures)
	s.Contains(preview.ReevaluationNote, "08:00 y 20:00")

	s.Run("nothing persisted", func() {
		page, err := s.svc.List(s.adminCtx(), store.ListFilter{})
		s.Require().NoError(err)
		s.Zero(page.Total)
	})

	s.Run("invalid scenario rejected", func() {
		_, err := s.svc.PreviewScore(s.adminCtx(), protocol.Input{Scenario: "weekend", CriticalProtocol: protocol.CriticalNone})
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestCreatePersistsAtomically() {
	eval := s.create(s.adminCtx(), testNow.Add(-time.Hour))

	found, err := s.svc.Get(s.adminCtx(), eval.ID)
	s.Require().NoError(err)
	s.Equal(protocol.LevelYellow, found.AlertLevel)
	s.Equal(models.ProtocolMedicoQuirurgico, found.ProtocolType)
	s.Equal(s.adminID, found.EvaluatorID)
	s.NotEmpty(found.Actions)
	for i, action := range found.Actions {
		s.Equal(i, action.OriginalOrderIndex)
		s.Equal(models.StatusNotApplied, action.Status)
		s.Equal(eval.ID, action.EvaluationID)
	}
}

func (s *ServiceSuite) TestCreateDenials() {
	s.Run("viewer may not activate", func() {
		_, _, err := s.svc.Create(s.ctxFor(s.viewerID, auth.RoleViewer), CreateInput{Input: elevatedInput(), Timestamp: testNow})
		s.Require().True(dErrors.Is(err, dErrors.CodeForbidden))
		s.Equal("role_forbidden", dErrors.ReasonOf(err))
	})

	s.Run("future timestamp rejected", func() {
		_, _, err := s.svc.Create(s.adminCtx(), CreateInput{Input: elevatedInput(), Timestamp: testNow.Add(time.Minute)})
		s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.Equal("future_timestamp", dErrors.ReasonOf(err))
	})

	s.Run("editor may not backdate past the window", func() {
		_, _, err := s.svc.Create(s.ctxFor(s.editorID, auth.RoleEditorManager), CreateInput{Input: elevatedInput(), Timestamp: testNow.Add(-25 * time.Hour)})
		s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.Equal("new_timestamp_too_old", dErrors.ReasonOf(err))
	})

	s.Run("unauthenticated rejected", func() {
		_, _, err := s.svc.Create(requestcontext.WithTime(context.Background(), testNow), CreateInput{Input: elevatedInput(), Timestamp: testNow})
		s.Require().True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("zero timestamp defaults to request time", func() {
		eval, _, err := s.svc.Create(s.adminCtx(), CreateInput{Input: elevatedInput()})
		s.Require().NoError(err)
		s.Equal(testNow, eval.TimestampUTC())
	})
}

func (s *ServiceSuite) TestUpdateGuarded() {
	editorCtx := s.ctxFor(s.editorID, auth.RoleEditorManager)
	own := s.create(editorCtx, testNow.Add(-time.Hour))

	s.Run("editor updates own fresh evaluation", func() {
		score := 5
		updated, err := s.svc.Update(editorCtx, own.ID, models.Patch{TotalScore: &score})
		s.Require().NoError(err)
		s.Equal(5, updated.TotalScore)
	})

	s.Run("other editor denied as not owner", func() {
		score := 9
		otherCtx := s.ctxFor(uuid.New(), auth.RoleEditorManager)
		_, err := s.svc.Update(otherCtx, own.ID, models.Patch{TotalScore: &score})
		s.Require().True(dErrors.Is(err, dErrors.CodeForbidden))
		s.Equal("not_owner", dErrors.ReasonOf(err))
	})

	s.Run("viewer denied by role", func() {
		score := 9
		_, err := s.svc.Update(s.ctxFor(s.viewerID, auth.RoleViewer), own.ID, models.Patch{TotalScore: &score})
		s.Require().True(dErrors.Is(err, dErrors.CodeForbidden))
		s.Equal("role_forbidden", dErrors.ReasonOf(err))
	})

	s.Run("new timestamp may not be in the future", func() {
		ts := testNow.Add(time.Hour)
		_, err := s.svc.Update(editorCtx, own.ID, models.Patch{Timestamp: &ts})
		s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.Equal("future_timestamp", dErrors.ReasonOf(err))
	})

	s.Run("unknown evaluation yields not found", func() {
		score := 1
		_, err := s.svc.Update(s.adminCtx(), uuid.New(), models.Patch{TotalScore: &score})
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestStaleEvaluationBindsEditorNotAdmin() {
	editorCtx := s.ctxFor(s.editorID, auth.RoleEditorManager)
	stale := s.create(s.adminCtx(), testNow.Add(-48*time.Hour))
	// Reassign ownership so the editor path is exercised.
	stale.EvaluatorID = s.editorID
	s.Require().NoError(s.store.Update(context.Background(), stale))

	score := 2
	_, err := s.svc.Update(editorCtx, stale.ID, models.Patch{TotalScore: &score})
	s.Require().True(dErrors.Is(err, dErrors.CodeForbidden))
	s.Equal("stale_window", dErrors.ReasonOf(err))

	_, err = s.svc.Update(s.adminCtx(), stale.ID, models.Patch{TotalScore: &score})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestDeleteCascades() {
	eval := s.create(s.adminCtx(), testNow.Add(-time.Hour))
	actionID := eval.Actions[0].ID

	s.Require().NoError(s.svc.Delete(s.adminCtx(), eval.ID))

	_, err := s.svc.Get(s.adminCtx(), eval.ID)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))

	_, err = s.svc.UpdateActionStatus(s.adminCtx(), actionID, models.StatusApplied)
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestActionStatusRecencyGate() {
	older := s.create(s.adminCtx(), testNow.Add(-3*time.Hour))
	s.create(s.adminCtx(), testNow.Add(-2*time.Hour))
	newest := s.create(s.adminCtx(), testNow.Add(-time.Hour))

	s.Run("viewer updates action on a recent evaluation", func() {
		viewerCtx := s.ctxFor(s.viewerID, auth.RoleViewer)
		action, err := s.svc.UpdateActionStatus(viewerCtx, newest.Actions[0].ID, models.StatusInProcess)
		s.Require().NoError(err)
		s.Equal(models.StatusInProcess, action.Status)
	})

	s.Run("status may move backwards", func() {
		action, err := s.svc.UpdateActionStatus(s.adminCtx(), newest.Actions[0].ID, models.StatusNotApplied)
		s.Require().NoError(err)
		s.Equal(models.StatusNotApplied, action.Status)
	})

	s.Run("admin denied outside the last-2 window", func() {
		_, err := s.svc.UpdateActionStatus(s.adminCtx(), older.Actions[0].ID, models.StatusApplied)
		s.Require().True(dErrors.Is(err, dErrors.CodeForbidden))
		s.Equal("not_recent_enough", dErrors.ReasonOf(err))
	})

	s.Run("unknown status rejected", func() {
		_, err := s.svc.UpdateActionStatus(s.adminCtx(), newest.Actions[0].ID, "done")
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestListValidation() {
	s.create(s.adminCtx(), testNow.Add(-2*time.Hour))
	s.create(s.adminCtx(), testNow.Add(-time.Hour))

	page, err := s.svc.List(s.adminCtx(), store.ListFilter{})
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Len(page.Evaluations, 2)

	_, err = s.svc.List(s.adminCtx(), store.ListFilter{Skip: -1})
	s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))

	start := testNow
	end := testNow.Add(-time.Hour)
	_, err = s.svc.List(s.adminCtx(), store.ListFilter{StartDate: &start, EndDate: &end})
	s.Require().True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestScoreSamples() {
	s.create(s.adminCtx(), testNow.Add(-2*time.Hour))
	s.create(s.adminCtx(), testNow.Add(-time.Hour))

	samples, err := s.svc.ScoreSamples(s.adminCtx(), 0)
	s.Require().NoError(err)
	s.Require().Len(samples, 2)
	s.True(samples[0].Timestamp.Before(samples[1].Timestamp))
}
