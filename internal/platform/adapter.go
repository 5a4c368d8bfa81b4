// Package platform abstracts the telephony backend behind a capability-
// declaring adapter. Callers branch on capability flags, never on backend
// identity.
package platform

import (
	"context"

	"github.com/isharaux/ussd-gateway/internal/session"
)

// Capabilities declares what a backend can do.
type Capabilities struct {
	// InteractiveSession: the backend supports multi-turn USSD dialogs and
	// delivers results through callbacks.
	InteractiveSession bool `json:"interactiveSession"`
	// SimSelection: requests may target a specific SIM subscription.
	SimSelection bool `json:"simSelection"`
	// Cancel: the backend has a session-cancel primitive.
	Cancel bool `json:"cancel"`
}

// Callback receives asynchronous request outcomes from interactive
// backends. Invocations may arrive on any goroutine.
type Callback interface {
	OnSuccess(key session.Key, responseText string)
	OnFailure(key session.Key, failureCode int)
}

// Ack acknowledges that a request was submitted to the backend.
type Ack struct {
	// Handle is the backend's opaque session object for this key.
	Handle any
	// Final reports that no callbacks will follow; one-shot backends set it
	// once the dialer launch succeeded.
	Final bool
}

// Adapter is the external-collaborator contract between the gateway core
// and a telephony backend. SendRequest returns as soon as the request is
// submitted; errors it returns are already translated to typed gateway
// errors, never raw backend exceptions.
type Adapter interface {
	Capabilities() Capabilities
	SendRequest(ctx context.Context, key session.Key, text string, cb Callback) (Ack, error)
}
