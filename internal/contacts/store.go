package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	dErrors "clave/pkg/domain-errors"
)

// Store-level sentinels shared by the memory and postgres implementations.
var (
	ErrNotFound      = dErrors.New(dErrors.CodeNotFound, "contact not found")
	ErrListNotFound  = dErrors.New(dErrors.CodeNotFound, "distribution list not found")
	ErrListNameTaken = dErrors.New(dErrors.CodeConflict, "distribution list name already taken")
)

// Store persists the distribution directory.
type Store interface {
	// Upsert writes the contact, replacing any entry with the same
	// (name, channel) pair. It returns the stored contact, which keeps the
	// original id when an entry is replaced.
	Upsert(ctx context.Context, contact *Contact) (*Contact, error)
	// List returns contacts for a channel ordered by name; an empty channel
	// returns every entry.
	List(ctx context.Context, channel Channel) ([]*Contact, error)
	// Delete removes a contact and drops it from every distribution list.
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateList inserts a named list; names are unique. Every referenced
	// contact must exist.
	CreateList(ctx context.Context, list *DistributionList) error
	Lists(ctx context.Context) ([]*DistributionList, error)
	DeleteList(ctx context.Context, id uuid.UUID) error
}

// InMemoryStore backs unit tests and credential-free development.
type InMemoryStore struct {
	mu       sync.RWMutex
	contacts map[uuid.UUID]*Contact
	lists    map[uuid.UUID]*DistributionList
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		contacts: make(map[uuid.UUID]*Contact),
		lists:    make(map[uuid.UUID]*DistributionList),
	}
}

func (s *InMemoryStore) Upsert(_ context.Context, contact *Contact) (*Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *contact
	for _, existing := range s.contacts {
		if existing.Channel == contact.Channel && strings.EqualFold(existing.Name, contact.Name) {
			cp.ID = existing.ID
			cp.CreatedAt = existing.CreatedAt
			break
		}
	}
	s.contacts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *InMemoryStore) List(_ context.Context, channel Channel) ([]*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Contact, 0, len(s.contacts))
	for _, contact := range s.contacts {
		if channel != "" && contact.Channel != channel {
			continue
		}
		cp := *contact
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Channel < out[j].Channel
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contacts, id)
	for _, list := range s.lists {
		for i, cid := range list.ContactIDs {
			if cid == id {
				list.ContactIDs = append(list.ContactIDs[:i], list.ContactIDs[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (s *InMemoryStore) CreateList(_ context.Context, list *DistributionList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.lists {
		if strings.EqualFold(existing.Name, list.Name) {
			return ErrListNameTaken
		}
	}
	for _, cid := range list.ContactIDs {
		if _, ok := s.contacts[cid]; !ok {
			return ErrNotFound
		}
	}
	cp := *list
	cp.ContactIDs = append([]uuid.UUID(nil), list.ContactIDs...)
	s.lists[list.ID] = &cp
	return nil
}

func (s *InMemoryStore) Lists(_ context.Context) ([]*DistributionList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DistributionList, 0, len(s.lists))
	for _, list := range s.lists {
		cp := *list
		cp.ContactIDs = append([]uuid.UUID(nil), list.ContactIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) DeleteList(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[id]; !ok {
		return ErrListNotFound
	}
	delete(s.lists, id)
	return nil
}
