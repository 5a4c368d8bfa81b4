package session

import (
	"time"
)

// DefaultKey is the session key used when the caller does not select a
// specific SIM subscription.
const DefaultKey = -1

// Key identifies the SIM subscription a session runs on.
type Key int

// KeyFor maps an optional subscription id to a session key.
func KeyFor(subscriptionID *int) Key {
	if subscriptionID == nil {
		return DefaultKey
	}
	return Key(*subscriptionID)
}

// SubscriptionID returns the subscription id behind the key, or nil for the
// default slot.
func (k Key) SubscriptionID() *int {
	if k == DefaultKey {
		return nil
	}
	id := int(k)
	return &id
}

// Session is one USSD dialog with the network.
type Session struct {
	Key             Key
	Code            string
	StartTime       time.Time
	Active          bool
	WaitingForInput bool
	// Stale is set when a pending request timed out; the session is still
	// registered but a later read can detect it was abandoned.
	Stale bool
	// Handle is the opaque adapter session object. Owned by the lifecycle
	// controller for the session's duration.
	Handle any
}

// State is the caller-visible snapshot of a session.
type State struct {
	Active          bool   `json:"isActive"`
	Code            string `json:"code,omitempty"`
	SubscriptionID  *int   `json:"subscriptionId,omitempty"`
	StartTime       int64  `json:"startTime,omitempty"`
	WaitingForInput bool   `json:"waitingForInput"`
	Stale           bool   `json:"stale,omitempty"`
}

// Snapshot converts a session into its caller-visible state.
func (s *Session) Snapshot() State {
	return State{
		Active:          s.Active,
		Code:            s.Code,
		SubscriptionID:  s.Key.SubscriptionID(),
		StartTime:       s.StartTime.UnixMilli(),
		WaitingForInput: s.WaitingForInput,
		Stale:           s.Stale,
	}
}
