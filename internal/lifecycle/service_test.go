package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/events"
	"github.com/isharaux/ussd-gateway/internal/history"
	"github.com/isharaux/ussd-gateway/internal/metrics"
	"github.com/isharaux/ussd-gateway/internal/platform"
	"github.com/isharaux/ussd-gateway/internal/session"
	"github.com/isharaux/ussd-gateway/internal/sim"
	"github.com/isharaux/ussd-gateway/internal/ussderr"
)

type env struct {
	adapter *platform.SimulatedAdapter
	bus     *events.Bus
	hist    *history.MemoryStore
	svc     *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	e := &env{
		adapter: platform.NewSimulatedAdapter(logger),
		bus:     events.NewBus(logger),
		hist:    history.NewMemoryStore(0),
	}
	sims := sim.NewStaticProvider(
		sim.Info{SlotIndex: 0, SubscriptionID: 1, CarrierName: "Safaricom"},
		sim.Info{SlotIndex: 1, SubscriptionID: 2, CarrierName: "Airtel"},
	)
	e.svc = New(logger, Config{}, e.adapter, sims, e.bus, metrics.NewCollector("test"), e.hist)
	return e
}

func TestDialReturnsResponse(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "Your balance is 42.00"})

	reply, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Your balance is 42.00", reply)

	// A terminal (non-menu) response ends the session.
	assert.Empty(t, e.svc.SessionStates())
}

func TestDialFormatsCode(t *testing.T) {
	e := newEnv(t)
	// The script is keyed by the formatted code.
	e.adapter.Script("*144#", platform.Step{Reply: "ok"})

	reply, err := e.svc.Dial(context.Background(), "*144", DialOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestDialInvalidCode(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Dial(context.Background(), "144", DialOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ussderr.ErrInvalidCode))

	// Nothing was submitted and no session exists.
	assert.Empty(t, e.svc.SessionStates())
}

func TestDialWhileSessionActive(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "1. Balance\n2. Data"})

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)

	// The menu keeps the session active; a second dial on the same key
	// must fail without disturbing it.
	_, err = e.svc.Dial(context.Background(), "*100#", DialOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ussderr.ErrSessionActive))

	states := e.svc.SessionStates()
	require.Len(t, states, 1)
	assert.Equal(t, "*144#", states[0].Code)
}

func TestDialDistinctSubscriptions(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "balance one"})
	e.adapter.Script("*556#", platform.Step{Reply: "balance two"})

	var wg sync.WaitGroup
	replies := make([]string, 2)
	errs := make([]error, 2)

	sub1, sub2 := 1, 2
	wg.Add(2)
	go func() {
		defer wg.Done()
		replies[0], errs[0] = e.svc.Dial(context.Background(), "*144#", DialOptions{SubscriptionID: &sub1})
	}()
	go func() {
		defer wg.Done()
		replies[1], errs[1] = e.svc.Dial(context.Background(), "*556#", DialOptions{SubscriptionID: &sub2})
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, "balance one", replies[0])
	assert.Equal(t, "balance two", replies[1])
}

func TestDialNativeFailure(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Fail: true, FailureCode: ussderr.FailureNoService})

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.Error(t, err)
	assert.Equal(t, ussderr.KindUssdFailed, ussderr.KindOf(err))

	// Failure is terminal: the key is free for a fresh session.
	assert.Empty(t, e.svc.SessionStates())
	e.adapter.Script("*144#", platform.Step{Reply: "recovered"})
	reply, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
}

func TestDialTimeout(t *testing.T) {
	e := newEnv(t)
	e.adapter.Delay = time.Second
	e.adapter.Script("*144#", platform.Step{Reply: "too late"})

	var stateEvents atomic.Int32
	sub := e.bus.Subscribe(events.EventSessionState, func(any) { stateEvents.Add(1) })
	defer sub.Remove()

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ussderr.ErrTimeout))

	// Timeout flags the session stale but keeps it registered.
	assert.Eventually(t, func() bool {
		states := e.svc.SessionStates()
		return len(states) == 1 && states[0].Stale && stateEvents.Load() > 0
	}, time.Second, 10*time.Millisecond)
}

func TestSendReply(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "1. Balance\n2. Data"})
	e.adapter.Script("1", platform.Step{Reply: "Balance: 100"})

	menu, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)
	assert.Contains(t, menu, "1. Balance")

	balance, err := e.svc.SendReply(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Balance: 100", balance)
}

// immediateAdapter delivers callbacks inside SendRequest itself, the
// tightest ordering a backend can produce.
type immediateAdapter struct {
	replies map[string]string
}

func (a *immediateAdapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{InteractiveSession: true, SimSelection: true, Cancel: true}
}

func (a *immediateAdapter) SendRequest(_ context.Context, key session.Key, text string, cb platform.Callback) (platform.Ack, error) {
	if cb != nil {
		cb.OnSuccess(key, a.replies[text])
	}
	return platform.Ack{}, nil
}

func TestSendReplyKeepsMenuFlagOnImmediateCallback(t *testing.T) {
	logger := zap.NewNop()
	adapter := &immediateAdapter{replies: map[string]string{
		"*144#": "1. Balance\n2. Data",
		"1":     "1. Airtime\n2. Bundles",
	}}
	svc := New(logger, Config{}, adapter, sim.NewStaticProvider(), events.NewBus(logger),
		metrics.NewCollector("test"), history.NewMemoryStore(0))

	menu, err := svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)
	assert.Contains(t, menu, "Balance")

	// The reply lands another menu before SendRequest even returns; the
	// session must still end up waiting for input.
	next, err := svc.SendReply(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.Contains(t, next, "Bundles")

	states := svc.SessionStates()
	require.Len(t, states, 1)
	assert.True(t, states[0].WaitingForInput)
}

func TestSendReplyWithoutSession(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.SendReply(context.Background(), "1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ussderr.ErrNoActiveSession))
}

func TestCancelSession(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "1. Balance\n2. Data"})

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)
	require.Len(t, e.svc.SessionStates(), 1)

	require.NoError(t, e.svc.CancelSession(context.Background(), nil))
	assert.Empty(t, e.svc.SessionStates())

	// Second cancel is a no-op success.
	require.NoError(t, e.svc.CancelSession(context.Background(), nil))
}

func TestCancelRejectsPendingCall(t *testing.T) {
	e := newEnv(t)
	e.adapter.Delay = time.Second
	e.adapter.Script("*144#", platform.Step{Reply: "never seen"})

	errCh := make(chan error, 1)
	go func() {
		_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
		errCh <- err
	}()

	// Give the dial a moment to register its completion, then cancel.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, e.svc.CancelSession(context.Background(), nil))

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ussderr.ErrCancelled))
	case <-time.After(2 * time.Second):
		t.Fatal("dial did not return after cancel")
	}
}

func TestHistoryRecording(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "Balance: 100"})

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)

	entries, err := e.svc.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "*144#", entries[0].Code)
	assert.True(t, entries[0].Success)

	require.NoError(t, e.svc.ClearHistory(context.Background()))
	entries, err = e.svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMetricsSnapshot(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "ok"})

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)

	snap := e.svc.Metrics(0)
	assert.Equal(t, 1, snap.TotalRequests)
	assert.Equal(t, 1, snap.SuccessfulRequests)
	assert.Equal(t, 1.0, snap.SuccessRate)
	require.Len(t, snap.TopCodes, 1)
	assert.Equal(t, "*144#", snap.TopCodes[0].Code)
}

func TestSimInfo(t *testing.T) {
	e := newEnv(t)

	sims, err := e.svc.SimInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, sims, 2)
	assert.Equal(t, "Safaricom", sims[0].CarrierName)

	id := 2
	carrier, err := e.svc.CarrierInfo(context.Background(), &id)
	require.NoError(t, err)
	assert.Equal(t, "Airtel", carrier.Name)
}

func TestUssdEventPublished(t *testing.T) {
	e := newEnv(t)
	e.adapter.Script("*144#", platform.Step{Reply: "Balance: 100"})

	var got *events.UssdEvent
	done := make(chan struct{})
	sub := e.bus.Subscribe(events.EventUssd, func(p any) {
		got = p.(*events.UssdEvent)
		close(done)
	})
	defer sub.Remove()

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ussdEvent not published")
	}
	assert.Equal(t, "Balance: 100", got.Reply)
	assert.Equal(t, "*144#", got.Code)
}

func TestSetTimeoutAndSecureMode(t *testing.T) {
	e := newEnv(t)
	e.svc.SetTimeout(10 * time.Millisecond)
	e.svc.SetSecureMode(true)
	e.adapter.Delay = 200 * time.Millisecond
	e.adapter.Script("*144#", platform.Step{Reply: "late"})

	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	assert.True(t, errors.Is(err, ussderr.ErrTimeout))
}

type oneShotEnv struct {
	svc    *Service
	opened []string
}

func newOneShotEnv(t *testing.T, openErr error) *oneShotEnv {
	t.Helper()
	logger := zap.NewNop()
	e := &oneShotEnv{}
	adapter := platform.NewDialerAdapter(logger, func(_ context.Context, telURL string) error {
		e.opened = append(e.opened, telURL)
		return openErr
	})
	e.svc = New(logger, Config{}, adapter, sim.NewStaticProvider(), events.NewBus(logger), metrics.NewCollector("test"), nil)
	return e
}

func TestOneShotDial(t *testing.T) {
	e := newOneShotEnv(t, nil)

	reply, err := e.svc.Dial(context.Background(), "*144#", DialOptions{})
	require.NoError(t, err)
	assert.Empty(t, reply)
	require.Len(t, e.opened, 1)

	// One-shot backends track no sessions.
	assert.Empty(t, e.svc.SessionStates())
}

func TestOneShotSendReplyNotSupported(t *testing.T) {
	e := newOneShotEnv(t, nil)

	_, err := e.svc.SendReply(context.Background(), "1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ussderr.ErrNotSupported))
}

func TestOneShotIgnoresSubscriptionID(t *testing.T) {
	e := newOneShotEnv(t, nil)

	id := 5
	_, err := e.svc.Dial(context.Background(), "*144#", DialOptions{SubscriptionID: &id})
	require.NoError(t, err)
	require.Len(t, e.opened, 1)
}
