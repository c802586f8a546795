package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSessionLogin     Type = "session.login"
	TypeSessionLogout    Type = "session.logout"
	TypeSessionRefreshed Type = "session.refreshed"
	TypeSessionExpired   Type = "session.expired"
)

// Event is a session lifecycle notification. SessionID is the browser session
// cookie value, empty for the CLI.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func New(t Type, sessionID string, username string, role string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: sessionID,
		Username:  username,
		Role:      role,
		Timestamp: time.Now().UTC(),
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}

// Discard is a Bus that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}

func (Discard) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event)
	return ch, func() {}
}
