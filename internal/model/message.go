// Package model defines the records shared across clawlog packages.
package model

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MirrorModel is the model alias agents report for mirrored deliveries.
const MirrorModel = "delivery-mirror"

// Message is a single user or assistant turn extracted from a session log line.
type Message struct {
	Timestamp  time.Time       `json:"timestamp"`
	Role       Role            `json:"role"`
	Agent      string          `json:"agent"`
	SessionID  string          `json:"session_id"`
	Model      string          `json:"model,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	Text       string          `json:"text"`
	Cost       *float64        `json:"cost,omitempty"`
	StopReason string          `json:"stop_reason,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// ShortSession returns the leading 8 characters of the session identifier.
func (m Message) ShortSession() string {
	if len(m.SessionID) <= 8 {
		return m.SessionID
	}
	return m.SessionID[:8]
}

// HasCost reports whether the message carries a positive cost.
func (m Message) HasCost() bool {
	return m.Cost != nil && *m.Cost > 0
}
