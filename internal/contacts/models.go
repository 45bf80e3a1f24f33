// Package contacts manages the alert distribution directory: who gets told,
// and over which channel, when the protocol escalates.
package contacts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "clave/pkg/domain-errors"
)

// Channel is the notification transport for a contact entry.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func (c Channel) Valid() bool {
	return c == ChannelWhatsApp || c == ChannelEmail
}

// ParseChannel validates an externally supplied channel string.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown channel %q", s))
	}
	return c, nil
}

// Contact is one entry in the alert distribution directory. The same person
// may appear once per channel; (name, channel) pairs are unique.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Channel   Channel   `json:"channel"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// DistributionList is a named group of contacts that the notification sender
// addresses as one recipient. Names are unique.
type DistributionList struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	ContactIDs []uuid.UUID `json:"contact_ids"`
	CreatedAt  time.Time   `json:"created_at"`
}
