package events

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names published by the gateway.
const (
	EventUssd         = "ussdEvent"
	EventUssdError    = "ussdErrorEvent"
	EventSessionState = "sessionStateChanged"
	EventSimState     = "simStateChanged"
)

// UssdEvent carries a successful network response.
type UssdEvent struct {
	Reply          string `json:"ussdReply"`
	Code           string `json:"code,omitempty"`
	SubscriptionID *int   `json:"subscriptionId,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// UssdErrorEvent carries a failed request.
type UssdErrorEvent struct {
	Error          string `json:"error"`
	FailureCode    int    `json:"failureCode"`
	Code           string `json:"code,omitempty"`
	SubscriptionID *int   `json:"subscriptionId,omitempty"`
}

// SessionStateEvent is a snapshot of one session's state after a transition.
type SessionStateEvent struct {
	Active          bool   `json:"isActive"`
	Code            string `json:"code,omitempty"`
	SubscriptionID  *int   `json:"subscriptionId,omitempty"`
	StartTime       int64  `json:"startTime,omitempty"`
	WaitingForInput bool   `json:"waitingForInput"`
}

// SimStateEvent signals that the set of installed SIMs changed.
type SimStateEvent struct {
	Count int `json:"count"`
}

// Handler receives the payload published under one event name.
type Handler func(payload any)

// Subscription is a disposable handle to one registered handler.
type Subscription struct {
	bus   *Bus
	event string
	id    string
	once  sync.Once
}

// Remove unregisters exactly this handler. Safe to call more than once.
func (s *Subscription) Remove() {
	s.once.Do(func() {
		s.bus.remove(s.event, s.id)
	})
}

// Bus is a typed publish/subscribe channel between the gateway core and its
// observers. Delivery is synchronous relative to Publish; listeners
// registered after a publish do not see earlier payloads.
type Bus struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
}

// NewBus creates an empty event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger:   logger.Named("events"),
		handlers: make(map[string]map[string]Handler),
	}
}

// Subscribe registers a handler for the named event and returns its
// subscription.
func (b *Bus) Subscribe(event string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[string]Handler)
	}
	b.handlers[event][id] = h

	return &Subscription{bus: b, event: event, id: id}
}

// Publish delivers payload to every handler registered for event. There is
// no ordering guarantee between handlers.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[event]))
	for _, h := range b.handlers[event] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	if len(hs) == 0 {
		b.logger.Debug("event published with no listeners", zap.String("event", event))
		return
	}
	for _, h := range hs {
		h(payload)
	}
}

// ListenerCount reports how many handlers are registered for event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

func (b *Bus) remove(event, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if hs, ok := b.handlers[event]; ok {
		delete(hs, id)
		if len(hs) == 0 {
			delete(b.handlers, event)
		}
	}
}
