package contacts

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"clave/internal/auth"
	dErrors "clave/pkg/domain-errors"
	"clave/pkg/requestcontext"
)

// Service manages the alert distribution directory. Reads are open to every
// authenticated role; mutations are administrator-only.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Save adds or updates a directory entry. Saving an existing (name, channel)
// pair replaces its address instead of duplicating the entry.
func (s *Service) Save(ctx context.Context, name string, channel Channel, address string) (*Contact, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !channel.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown channel")
	}
	if err := validateAddress(channel, address); err != nil {
		return nil, err
	}

	contact, err := s.store.Upsert(ctx, &Contact{
		ID:        uuid.New(),
		Name:      name,
		Channel:   channel,
		Address:   address,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contact")
	}

	s.logger.InfoContext(ctx, "contact saved", "contact_id", contact.ID, "channel", contact.Channel)
	return contact, nil
}

// List returns the directory, optionally narrowed to one channel.
func (s *Service) List(ctx context.Context, channel Channel) ([]*Contact, error) {
	if channel != "" && !channel.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown channel")
	}
	out, err := s.store.List(ctx, channel)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
	}
	return out, nil
}

// Delete removes a directory entry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "contact deleted", "contact_id", id)
	return nil
}

// CreateList creates a named distribution list over existing contacts.
func (s *Service) CreateList(ctx context.Context, name string, contactIDs []uuid.UUID) (*DistributionList, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(contactIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "a distribution list needs at least one contact")
	}
	seen := make(map[uuid.UUID]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		if _, dup := seen[id]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate contact in list")
		}
		seen[id] = struct{}{}
	}

	list := &DistributionList{
		ID:         uuid.New(),
		Name:       name,
		ContactIDs: contactIDs,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.CreateList(ctx, list); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "distribution list created", "list_id", list.ID, "contacts", len(list.ContactIDs))
	return list, nil
}

// Lists returns every distribution list.
func (s *Service) Lists(ctx context.Context) ([]*DistributionList, error) {
	out, err := s.store.Lists(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list distribution lists")
	}
	return out, nil
}

// DeleteList removes a distribution list; its contacts stay in the directory.
func (s *Service) DeleteList(ctx context.Context, id uuid.UUID) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.store.DeleteList(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "distribution list deleted", "list_id", id)
	return nil
}

func requireAdmin(ctx context.Context) error {
	if requestcontext.UserRole(ctx) != string(auth.RoleAdministrator) {
		return dErrors.New(dErrors.CodeForbidden, "only administrators may manage contacts")
	}
	return nil
}

func validateAddress(channel Channel, address string) error {
	if address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if channel == ChannelEmail {
		if _, err := mail.ParseAddress(address); err != nil {
			return dErrors.New(dErrors.CodeValidation, "invalid email address")
		}
	}
	return nil
}
