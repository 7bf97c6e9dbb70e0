package event

import "time"

type Type string

// Auth lifecycle events. Failed logins carry the attempted email so the audit
// trail can surface credential-stuffing patterns; they never carry passwords.
const (
	TypeUserRegistered Type = "user.registered"
	TypeLoginSucceeded Type = "login.succeeded"
	TypeLoginFailed    Type = "login.failed"
	TypeTokenRefreshed Type = "token.refreshed"
	TypeUserLoggedOut  Type = "user.logged_out"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
