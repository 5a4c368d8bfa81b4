// Package correlator binds each in-flight USSD request to exactly one
// completion handle and routes asynchronous platform callbacks back to the
// originating caller. The underlying telephony callback carries no request
// id, only the session key; the pending-completion table supplies that
// missing correlation layer.
package correlator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/events"
	"github.com/isharaux/ussd-gateway/internal/history"
	"github.com/isharaux/ussd-gateway/internal/metrics"
	"github.com/isharaux/ussd-gateway/internal/session"
	"github.com/isharaux/ussd-gateway/internal/ussderr"
	"github.com/isharaux/ussd-gateway/pkg/parser"
)

// DefaultTimeout bounds how long a completion waits for a platform callback.
const DefaultTimeout = 30 * time.Second

const securePlaceholder = "[secure]"

type outcome struct {
	reply string
	err   error
}

// Completion is the single outstanding awaitable bound to one in-flight
// request. It settles exactly once: native success, native failure, timeout
// or cancellation.
type Completion struct {
	key  session.Key
	done chan outcome
}

// Await blocks until the completion settles or ctx is cancelled.
func (c *Completion) Await(ctx context.Context) (string, error) {
	select {
	case out := <-c.done:
		return out.reply, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Key returns the session key this completion is bound to.
func (c *Completion) Key() session.Key { return c.key }

type pendingEntry struct {
	completion *Completion
	code       string
	secure     bool
	started    time.Time
	timer      *time.Timer
	settled    bool
}

// Correlator owns the pending-completion table. All mutation of the table
// and the session registry funnels through its mutex; platform callbacks may
// arrive on any goroutine.
type Correlator struct {
	logger    *zap.Logger
	registry  *session.Registry
	bus       *events.Bus
	collector *metrics.Collector
	histStore history.Store

	mu      sync.Mutex
	pending map[session.Key]*pendingEntry

	// unsolicited responses retained for callers that poll instead of
	// subscribing.
	backlog []events.UssdEvent
}

// New creates a correlator. histStore may be nil to disable history
// recording.
func New(logger *zap.Logger, registry *session.Registry, bus *events.Bus, collector *metrics.Collector, histStore history.Store) *Correlator {
	return &Correlator{
		logger:    logger.Named("correlator"),
		registry:  registry,
		bus:       bus,
		collector: collector,
		histStore: histStore,
		pending:   make(map[session.Key]*pendingEntry),
	}
}

// Issue binds a new pending completion to key and arms its timeout timer.
// Fails with SessionBusy while an unresolved completion exists for the key.
func (c *Correlator) Issue(key session.Key, code string, secure bool, timeout time.Duration) (*Completion, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.pending[key]; ok && !e.settled {
		return nil, ussderr.Newf(ussderr.KindSessionBusy,
			"request already pending on key %d (dialing %s)", key, e.code)
	}

	completion := &Completion{key: key, done: make(chan outcome, 1)}
	entry := &pendingEntry{
		completion: completion,
		code:       code,
		secure:     secure,
		started:    time.Now(),
	}
	entry.timer = time.AfterFunc(timeout, func() { c.onTimeout(key, entry) })
	c.pending[key] = entry

	c.collector.RequestStarted(code)
	c.logger.Debug("completion issued",
		zap.Int("key", int(key)),
		zap.String("code", c.loggable(code, secure)),
		zap.Duration("timeout", timeout))
	return completion, nil
}

// OnNativeSuccess routes a successful platform callback. A matching pending
// completion is resolved with the response text; without one the response is
// published as an unsolicited message instead of an error.
func (c *Correlator) OnNativeSuccess(key session.Key, responseText string) {
	c.mu.Lock()
	e, ok := c.pending[key]
	if ok && !e.settled {
		c.settleLocked(key, e, outcome{reply: responseText})
		c.mu.Unlock()

		// A menu keeps the dialog open and waits for the caller's next
		// input; anything else is a terminal success and ends the session.
		if parser.IsMenu(responseText) {
			c.registry.Update(key, func(s *session.Session) { s.WaitingForInput = true })
		} else {
			c.registry.Update(key, func(s *session.Session) {
				s.Active = false
				s.WaitingForInput = false
			})
			c.registry.Remove(key)
		}
		c.collector.RequestSucceeded(e.code, time.Since(e.started))
		c.record(history.Entry{
			Code:           e.code,
			Timestamp:      time.Now().UnixMilli(),
			Success:        true,
			Response:       c.loggable(responseText, e.secure),
			SubscriptionID: key.SubscriptionID(),
		})
		c.publishReply(key, e.code, responseText)
		c.publishSessionState(key)
		return
	}
	c.mu.Unlock()

	// No pending completion: late reply after a timeout, or a network push.
	// Broadcast instead of erroring.
	c.logger.Debug("unsolicited ussd response", zap.Int("key", int(key)))

	var code string
	if s := c.registry.Get(key); s != nil {
		code = s.Code
	}
	c.collector.ResponseReceived(code)
	c.record(history.Entry{
		Code:           code,
		Timestamp:      time.Now().UnixMilli(),
		Success:        true,
		Response:       responseText,
		SubscriptionID: key.SubscriptionID(),
	})

	ev := events.UssdEvent{
		Reply:          responseText,
		Code:           code,
		SubscriptionID: key.SubscriptionID(),
		Timestamp:      time.Now().UnixMilli(),
	}
	c.mu.Lock()
	c.backlog = append(c.backlog, ev)
	c.mu.Unlock()
	c.bus.Publish(events.EventUssd, &ev)
}

// OnNativeFailure routes a failed platform callback. The session is torn
// down whether or not a completion was pending; failures are terminal and
// the session can only be restarted, not resumed.
func (c *Correlator) OnNativeFailure(key session.Key, failureCode int) {
	c.mu.Lock()
	e, ok := c.pending[key]
	pendingSettled := ok && !e.settled
	if pendingSettled {
		c.settleLocked(key, e, outcome{err: ussderr.UssdFailed(failureCode)})
	}
	c.mu.Unlock()

	code := ""
	if pendingSettled {
		code = e.code
	} else if s := c.registry.Get(key); s != nil {
		code = s.Code
	}

	c.registry.Update(key, func(s *session.Session) { s.Active = false })
	c.registry.Remove(key)

	// Only a settled pending request still holds an inflight slot.
	if pendingSettled {
		c.collector.RequestFailed(code)
	}
	c.record(history.Entry{
		Code:           code,
		Timestamp:      time.Now().UnixMilli(),
		Success:        false,
		SubscriptionID: key.SubscriptionID(),
		Error:          ussderr.FailureMessage(failureCode),
	})

	c.bus.Publish(events.EventUssdError, &events.UssdErrorEvent{
		Error:          ussderr.FailureMessage(failureCode),
		FailureCode:    failureCode,
		Code:           code,
		SubscriptionID: key.SubscriptionID(),
	})
	c.publishSessionState(key)
}

// Cancel rejects the pending completion for key, if any, with the given
// error kind. Reports whether a completion was settled.
func (c *Correlator) Cancel(key session.Key, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.pending[key]
	if !ok || e.settled {
		return false
	}
	c.settleLocked(key, e, outcome{err: err})
	c.collector.RequestCancelled(e.code)
	return true
}

// Drain returns the unsolicited responses collected since the last call and
// empties the backlog.
func (c *Correlator) Drain() []events.UssdEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.backlog
	c.backlog = nil
	return out
}

// onTimeout fires from the entry's timer. The completion is rejected and
// the session stays registered but is flagged stale; a reply arriving later
// takes the unsolicited path.
func (c *Correlator) onTimeout(key session.Key, entry *pendingEntry) {
	c.mu.Lock()
	if entry.settled {
		c.mu.Unlock()
		return
	}
	c.settleLocked(key, entry, outcome{err: ussderr.ErrTimeout})
	c.mu.Unlock()

	c.logger.Warn("ussd request timed out",
		zap.Int("key", int(key)),
		zap.String("code", c.loggable(entry.code, entry.secure)))

	c.registry.Update(key, func(s *session.Session) { s.Stale = true })
	c.collector.RequestFailed(entry.code)
	c.record(history.Entry{
		Code:           entry.code,
		Timestamp:      time.Now().UnixMilli(),
		Success:        false,
		SubscriptionID: key.SubscriptionID(),
		Error:          "request timed out",
	})
	c.publishSessionState(key)
}

// settleLocked delivers the outcome exactly once and releases the entry.
// Caller holds c.mu.
func (c *Correlator) settleLocked(key session.Key, e *pendingEntry, out outcome) {
	e.settled = true
	e.timer.Stop()
	delete(c.pending, key)
	e.completion.done <- out
}

func (c *Correlator) publishReply(key session.Key, code, reply string) {
	c.bus.Publish(events.EventUssd, &events.UssdEvent{
		Reply:          reply,
		Code:           code,
		SubscriptionID: key.SubscriptionID(),
		Timestamp:      time.Now().UnixMilli(),
	})
}

func (c *Correlator) publishSessionState(key session.Key) {
	if s := c.registry.Get(key); s != nil {
		snap := s.Snapshot()
		c.bus.Publish(events.EventSessionState, &events.SessionStateEvent{
			Active:          snap.Active,
			Code:            snap.Code,
			SubscriptionID:  snap.SubscriptionID,
			StartTime:       snap.StartTime,
			WaitingForInput: snap.WaitingForInput,
		})
		return
	}
	c.bus.Publish(events.EventSessionState, &events.SessionStateEvent{
		Active:         false,
		SubscriptionID: key.SubscriptionID(),
	})
}

func (c *Correlator) record(e history.Entry) {
	if c.histStore == nil {
		return
	}
	if err := c.histStore.Append(context.Background(), e); err != nil {
		c.logger.Error("failed to append history entry", zap.Error(err))
	}
}

// loggable masks text in secure mode so response bodies never reach logs or
// history.
func (c *Correlator) loggable(text string, secure bool) string {
	if secure {
		return securePlaceholder
	}
	return text
}
