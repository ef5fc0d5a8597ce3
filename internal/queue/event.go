// Package queue defines the auth audit events exchanged over the message
// broker, a publisher for them, and a consumer that appends them to a log file.
package queue

// Event types.
const (
	EventRegistered  = "user.registered"
	EventLogin       = "user.login"
	EventLoginFailed = "user.login_failed"
	EventLogout      = "user.logout"
	EventDeactivated = "user.deactivated"
)

// AuthEvent is published after a security-relevant session change. It never
// carries credentials; Reason is only set for failures and stays server-side.
type AuthEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
