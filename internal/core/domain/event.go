package domain

import "time"

// AuthEventKind names an auditable step of the credential lifecycle.
type AuthEventKind string

const (
	EventRegistered     AuthEventKind = "registered"
	EventLoginSucceeded AuthEventKind = "login_succeeded"
	EventLoginFailed    AuthEventKind = "login_failed"
	EventLogout         AuthEventKind = "logout"
	EventResetRequested AuthEventKind = "reset_requested"
	EventPasswordReset  AuthEventKind = "password_reset"
)

// AuthEvent is an audit trail entry. UserID is empty when the email did not
// resolve to a user.
type AuthEvent struct {
	Kind      AuthEventKind
	UserID    string
	Email     string
	Timestamp time.Time
}
