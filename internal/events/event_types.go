package events

import (
	"time"

	"github.com/spec-kit/merchant-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventSessionCleared EventType = "session_cleared"
	EventSessionExpired EventType = "session_expired"
)

// Event represents a session lifecycle event for one browser scope.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Scope     string      `json:"scope"`
	UserID    string      `json:"user_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionClearedPayload payload.
type SessionClearedPayload struct {
	Reason string `json:"reason"`
}

// SessionExpiredPayload payload. Readable is false when the stored token could not be decoded.
type SessionExpiredPayload struct {
	Readable  bool      `json:"readable"`
	ExpiredAt time.Time `json:"expired_at,omitempty"`
}
