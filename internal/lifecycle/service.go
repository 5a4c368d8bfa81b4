// Package lifecycle implements the session lifecycle controller: it owns
// session start/continue/cancel transitions, enforces the one-active-
// session-per-key invariant and fronts the correlator with the caller-
// facing API.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/correlator"
	"github.com/isharaux/ussd-gateway/internal/events"
	"github.com/isharaux/ussd-gateway/internal/history"
	"github.com/isharaux/ussd-gateway/internal/metrics"
	"github.com/isharaux/ussd-gateway/internal/platform"
	"github.com/isharaux/ussd-gateway/internal/session"
	"github.com/isharaux/ussd-gateway/internal/sim"
	"github.com/isharaux/ussd-gateway/internal/ussderr"
	"github.com/isharaux/ussd-gateway/pkg/validator"
)

// DialOptions are the per-call options recognized by Dial.
type DialOptions struct {
	// SubscriptionID selects the SIM to dial on. Ignored by backends
	// without SIM selection.
	SubscriptionID *int
	// Timeout overrides the service default for this call.
	Timeout time.Duration
	// SecureMode masks the response text in logs and history.
	SecureMode bool
}

// Config holds the service defaults.
type Config struct {
	DefaultTimeout time.Duration
	SecureMode     bool
}

// Service is the caller-facing entry point of the gateway. Every session
// and pending-completion mutation goes through the service's correlator and
// registry pair; callers never touch them directly.
type Service struct {
	logger    *zap.Logger
	adapter   platform.Adapter
	registry  *session.Registry
	corr      *correlator.Correlator
	bus       *events.Bus
	collector *metrics.Collector
	histStore history.Store
	sims      sim.Provider

	mu             sync.RWMutex
	defaultTimeout time.Duration
	secureMode     bool
}

// New wires a service around its collaborators. histStore may be nil to
// disable history.
func New(logger *zap.Logger, cfg Config, adapter platform.Adapter, sims sim.Provider, bus *events.Bus, collector *metrics.Collector, histStore history.Store) *Service {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = correlator.DefaultTimeout
	}
	registry := session.NewRegistry(logger)
	return &Service{
		logger:         logger.Named("lifecycle"),
		adapter:        adapter,
		registry:       registry,
		corr:           correlator.New(logger, registry, bus, collector, histStore),
		bus:            bus,
		collector:      collector,
		histStore:      histStore,
		sims:           sims,
		defaultTimeout: cfg.DefaultTimeout,
		secureMode:     cfg.SecureMode,
	}
}

// nativeCallback marshals adapter callbacks into the correlator.
type nativeCallback struct{ corr *correlator.Correlator }

func (n nativeCallback) OnSuccess(key session.Key, responseText string) {
	n.corr.OnNativeSuccess(key, responseText)
}

func (n nativeCallback) OnFailure(key session.Key, failureCode int) {
	n.corr.OnNativeFailure(key, failureCode)
}

// Dial starts a USSD session and blocks until the first network response,
// which it returns. On one-shot backends it returns an empty response once
// the dialer launch is acknowledged. Events fire for every response either
// way, so event-only observers stay consistent with blocking callers.
func (s *Service) Dial(ctx context.Context, code string, opts DialOptions) (string, error) {
	res := validator.ValidateCode(code)
	if !res.IsValid {
		return "", ussderr.New(ussderr.KindInvalidCode, res.Error)
	}
	formatted := res.FormattedCode

	timeout, secure := s.defaults()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	secure = secure || opts.SecureMode

	caps := s.adapter.Capabilities()
	key := session.KeyFor(opts.SubscriptionID)
	if opts.SubscriptionID != nil && !caps.SimSelection {
		s.logger.Warn("backend has no sim selection, ignoring subscription id",
			zap.Int("subscriptionId", *opts.SubscriptionID))
		key = session.DefaultKey
	}

	if !caps.InteractiveSession {
		return s.dialOneShot(ctx, key, formatted)
	}

	sess := &session.Session{
		Key:       key,
		Code:      formatted,
		StartTime: time.Now(),
		Active:    true,
	}
	if err := s.registry.Register(sess); err != nil {
		return "", err
	}

	completion, err := s.corr.Issue(key, formatted, secure, timeout)
	if err != nil {
		s.registry.Remove(key)
		return "", err
	}

	ack, err := s.adapter.SendRequest(ctx, key, formatted, nativeCallback{s.corr})
	if err != nil {
		// Cancel settles the completion and releases its inflight slot.
		s.corr.Cancel(key, err)
		s.registry.Remove(key)
		s.record(history.Entry{
			Code:           formatted,
			Timestamp:      time.Now().UnixMilli(),
			SubscriptionID: key.SubscriptionID(),
			Error:          err.Error(),
		})
		return "", err
	}
	s.registry.Update(key, func(sess *session.Session) { sess.Handle = ack.Handle })
	s.publishSessionState(key)

	s.logger.Info("ussd session started",
		zap.Int("key", int(key)),
		zap.String("code", formatted))
	return completion.Await(ctx)
}

// dialOneShot hands the code to a backend without response correlation.
func (s *Service) dialOneShot(ctx context.Context, key session.Key, code string) (string, error) {
	s.collector.RequestStarted(code)
	start := time.Now()

	ack, err := s.adapter.SendRequest(ctx, key, code, nil)
	if err != nil {
		s.collector.RequestFailed(code)
		return "", err
	}
	if !ack.Final {
		s.logger.Warn("one-shot backend returned a non-final ack")
	}

	s.collector.RequestSucceeded(code, time.Since(start))
	s.logger.Info("dialer launched", zap.String("code", code))
	return "", nil
}

// SendReply continues an active interactive session with the given text and
// blocks until the next network response.
func (s *Service) SendReply(ctx context.Context, text string, subscriptionID *int) (string, error) {
	if !s.adapter.Capabilities().InteractiveSession {
		return "", ussderr.New(ussderr.KindNotSupported, "interactive ussd sessions are not supported on this platform")
	}

	key := session.KeyFor(subscriptionID)
	sess := s.registry.Get(key)
	if sess == nil || !sess.Active {
		return "", ussderr.Newf(ussderr.KindNoActiveSession, "no active ussd session on key %d", key)
	}

	timeout, secure := s.defaults()
	completion, err := s.corr.Issue(key, sess.Code, secure, timeout)
	if err != nil {
		return "", err
	}

	// Clear the flag before dispatching: the adapter may deliver the next
	// menu callback synchronously, and that callback must win.
	s.registry.Update(key, func(sess *session.Session) { sess.WaitingForInput = false })

	if _, err := s.adapter.SendRequest(ctx, key, text, nativeCallback{s.corr}); err != nil {
		s.corr.Cancel(key, err)
		return "", err
	}

	return completion.Await(ctx)
}

// CancelSession tears down the session on the given key. This is local
// bookkeeping: the network leg may outlive it, since USSD offers no true
// cancel primitive. Cancelling an already-idle key is a no-op success, so
// repeated cancels are safe.
func (s *Service) CancelSession(ctx context.Context, subscriptionID *int) error {
	key := session.KeyFor(subscriptionID)
	sess := s.registry.Get(key)
	if sess == nil {
		return nil
	}

	s.corr.Cancel(key, ussderr.ErrCancelled)
	s.registry.Update(key, func(sess *session.Session) { sess.Active = false })
	s.registry.Remove(key)

	// Best effort: an empty request is the closest the protocol has to a
	// cancel. Its outcome is irrelevant to the local teardown.
	if s.adapter.Capabilities().Cancel {
		if _, err := s.adapter.SendRequest(ctx, key, "", nativeCallback{s.corr}); err != nil {
			s.logger.Debug("cancel request failed", zap.Error(err))
		}
	}

	s.publishSessionState(key)
	s.logger.Info("ussd session cancelled", zap.Int("key", int(key)))
	return nil
}

// SessionStates returns snapshots of all active sessions.
func (s *Service) SessionStates() []session.State {
	return s.registry.States()
}

// SimInfo enumerates installed SIM subscriptions.
func (s *Service) SimInfo(ctx context.Context) ([]sim.Info, error) {
	return s.sims.List(ctx)
}

// CarrierInfo returns network information for a subscription.
func (s *Service) CarrierInfo(ctx context.Context, subscriptionID *int) (sim.CarrierInfo, error) {
	return s.sims.Carrier(ctx, subscriptionID)
}

// NetworkStatus reports the current cellular network status.
func (s *Service) NetworkStatus(ctx context.Context) (sim.NetworkStatus, error) {
	return s.sims.Network(ctx)
}

// History returns up to limit recorded entries, oldest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if s.histStore == nil {
		return nil, nil
	}
	return s.histStore.Recent(ctx, limit)
}

// ClearHistory drops all recorded entries.
func (s *Service) ClearHistory(ctx context.Context) error {
	if s.histStore == nil {
		return nil
	}
	return s.histStore.Clear(ctx)
}

// Metrics returns the current derived metric values, keeping the topN most
// used codes. topN <= 0 selects the collector default.
func (s *Service) Metrics(topN int) metrics.Snapshot {
	return s.collector.Snapshot(topN)
}

// PendingResponses drains unsolicited responses collected for polling
// callers.
func (s *Service) PendingResponses() []events.UssdEvent {
	return s.corr.Drain()
}

// Capabilities exposes the backend capability flags.
func (s *Service) Capabilities() platform.Capabilities {
	return s.adapter.Capabilities()
}

// SetTimeout changes the default completion timeout.
func (s *Service) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.defaultTimeout = d
	}
}

// SetSecureMode toggles masking of response text in logs and history.
func (s *Service) SetSecureMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secureMode = enabled
}

func (s *Service) defaults() (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultTimeout, s.secureMode
}

func (s *Service) publishSessionState(key session.Key) {
	if sess := s.registry.Get(key); sess != nil {
		snap := sess.Snapshot()
		s.bus.Publish(events.EventSessionState, &events.SessionStateEvent{
			Active:          snap.Active,
			Code:            snap.Code,
			SubscriptionID:  snap.SubscriptionID,
			StartTime:       snap.StartTime,
			WaitingForInput: snap.WaitingForInput,
		})
		return
	}
	s.bus.Publish(events.EventSessionState, &events.SessionStateEvent{
		Active:         false,
		SubscriptionID: key.SubscriptionID(),
	})
}

func (s *Service) record(e history.Entry) {
	if s.histStore == nil {
		return
	}
	if err := s.histStore.Append(context.Background(), e); err != nil {
		s.logger.Error("failed to append history entry", zap.Error(err))
	}
}
