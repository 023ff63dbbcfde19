package email

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("email has no recipients")

// Message is one outgoing e-mail.
type Message struct {
	To      []string
	From    string // falls back to the sender's default when empty
	Subject string
	HTML    string
	Text    string // plain-text alternative
}

// Receipt is the provider's acknowledgement of a send.
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers e-mail through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
