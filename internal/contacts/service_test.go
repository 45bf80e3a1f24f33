package contacts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clave/internal/auth"
	dErrors "clave/pkg/domain-errors"
	"clave/pkg/requestcontext"
)

type ContactsSuite struct {
	suite.Suite
	svc *Service
}

func (s *ContactsSuite) SetupTest() {
	s.svc = NewService(NewInMemoryStore(), nil)
}

func TestContactsSuite(t *testing.T) {
	suite.Run(t, new(ContactsSuite))
}

func (s *ContactsSuite) roleCtx(role auth.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), uuid.New())
	return requestcontext.WithUserRole(ctx, string(role))
}

func (s *ContactsSuite) TestSaveAndList() {
	ctx := s.roleCtx(auth.RoleAdministrator)

	_, err := s.svc.Save(ctx, "Dra. Rojas", ChannelEmail, "rojas@hospital.test")
	s.Require().NoError(err)
	_, err = s.svc.Save(ctx, "Dra. Rojas", ChannelWhatsApp, "+56911112222")
	s.Require().NoError(err)

	all, err := s.svc.List(ctx, "")
	s.Require().NoError(err)
	s.Len(all, 2)

	emails, err := s.svc.List(ctx, ChannelEmail)
	s.Require().NoError(err)
	s.Require().Len(emails, 1)
	s.Equal("rojas@hospital.test", emails[0].Address)
}

func (s *ContactsSuite) TestSaveReplacesExistingEntry() {
	ctx := s.roleCtx(auth.RoleAdministrator)

	first, err := s.svc.Save(ctx, "Dr. Soto", ChannelEmail, "soto@hospital.test")
	s.Require().NoError(err)

	second, err := s.svc.Save(ctx, "dr. soto", ChannelEmail, "soto.new@hospital.test")
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID, "same (name, channel) keeps its id")

	all, err := s.svc.List(ctx, ChannelEmail)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("soto.new@hospital.test", all[0].Address)
}

func (s *ContactsSuite) TestValidation() {
	ctx := s.roleCtx(auth.RoleAdministrator)

	_, err := s.svc.Save(ctx, "", ChannelEmail, "x@hospital.test")
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))

	_, err = s.svc.Save(ctx, "Dr. Soto", ChannelEmail, "not-an-email")
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))

	_, err = s.svc.Save(ctx, "Dr. Soto", "sms", "+56911112222")
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *ContactsSuite) TestMutationsAreAdminOnly() {
	viewerCtx := s.roleCtx(auth.RoleViewer)

	_, err := s.svc.Save(viewerCtx, "Dr. Soto", ChannelEmail, "soto@hospital.test")
	s.Require().True(dErrors.Is(err, dErrors.CodeForbidden))

	s.Require().True(dErrors.Is(s.svc.Delete(viewerCtx, uuid.New()), dErrors.CodeForbidden))

	// Reads stay open.
	_, err = s.svc.List(viewerCtx, "")
	s.Require().NoError(err)
}

func (s *ContactsSuite) TestDelete() {
	ctx := s.roleCtx(auth.RoleAdministrator)
	contact, err := s.svc.Save(ctx, "Dr. Soto", ChannelEmail, "soto@hospital.test")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(ctx, contact.ID))
	s.Require().True(dErrors.Is(s.svc.Delete(ctx, contact.ID), dErrors.CodeNotFound))
}

func (s *ContactsSuite) TestDistributionLists() {
	ctx := s.roleCtx(auth.RoleAdministrator)
	soto, err := s.svc.Save(ctx, "Dr. Soto", ChannelEmail, "soto@hospital.test")
	s.Require().NoError(err)
	rojas, err := s.svc.Save(ctx, "Dra. Rojas", ChannelWhatsApp, "+56911112222")
	s.Require().NoError(err)

	list, err := s.svc.CreateList(ctx, "Turno noche", []uuid.UUID{soto.ID, rojas.ID})
	s.Require().NoError(err)
	s.Len(list.ContactIDs, 2)

	s.Run("name is unique", func() {
		_, err := s.svc.CreateList(ctx, "turno noche", []uuid.UUID{soto.ID})
		s.Require().True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("members must exist", func() {
		_, err := s.svc.CreateList(ctx, "Jefaturas", []uuid.UUID{uuid.New()})
		s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("validation", func() {
		_, err := s.svc.CreateList(ctx, "  ", []uuid.UUID{soto.ID})
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))

		_, err = s.svc.CreateList(ctx, "Jefaturas", nil)
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))

		_, err = s.svc.CreateList(ctx, "Jefaturas", []uuid.UUID{soto.ID, soto.ID})
		s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("admin only", func() {
		viewerCtx := s.roleCtx(auth.RoleViewer)
		_, err := s.svc.CreateList(viewerCtx, "Jefaturas", []uuid.UUID{soto.ID})
		s.Require().True(dErrors.Is(err, dErrors.CodeForbidden))
		s.Require().True(dErrors.Is(s.svc.DeleteList(viewerCtx, list.ID), dErrors.CodeForbidden))
	})

	s.Run("deleting a contact drops it from lists", func() {
		s.Require().NoError(s.svc.Delete(ctx, rojas.ID))
		lists, err := s.svc.Lists(ctx)
		s.Require().NoError(err)
		s.Require().Len(lists, 1)
		s.Equal([]uuid.UUID{soto.ID}, lists[0].ContactIDs)
	})

	s.Run("delete list keeps contacts", func() {
		s.Require().NoError(s.svc.DeleteList(ctx, list.ID))
		s.Require().True(dErrors.Is(s.svc.DeleteList(ctx, list.ID), dErrors.CodeNotFound))

		contacts, err := s.svc.List(ctx, "")
		s.Require().NoError(err)
		s.Len(contacts, 1)
	})
}
