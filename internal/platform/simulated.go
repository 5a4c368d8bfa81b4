package platform

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/session"
	"github.com/isharaux/ussd-gateway/internal/ussderr"
)

// Step is one scripted backend reaction. Exactly one of Reply or
// FailureCode is meaningful; Fail selects between them.
type Step struct {
	Reply       string
	Fail        bool
	FailureCode int
}

// SimulatedAdapter is an interactive backend driven by a script: each
// request on a key consumes the next scripted step for the text sent.
// Callbacks are delivered asynchronously after Delay, mimicking network
// latency. It backs local development and the test suite.
type SimulatedAdapter struct {
	logger *zap.Logger
	Delay  time.Duration

	mu     sync.Mutex
	script map[string][]Step
}

var _ Adapter = (*SimulatedAdapter)(nil)

// NewSimulatedAdapter creates a simulated backend with an empty script.
// Unscripted requests fail with ERROR_IN_REQUEST.
func NewSimulatedAdapter(logger *zap.Logger) *SimulatedAdapter {
	return &SimulatedAdapter{
		logger: logger.Named("platform.simulated"),
		Delay:  time.Millisecond,
		script: make(map[string][]Step),
	}
}

// Script queues steps to be consumed by successive requests carrying text.
func (a *SimulatedAdapter) Script(text string, steps ...Step) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.script[text] = append(a.script[text], steps...)
}

// Capabilities implements Adapter.Capabilities.
func (a *SimulatedAdapter) Capabilities() Capabilities {
	return Capabilities{InteractiveSession: true, SimSelection: true, Cancel: true}
}

// SendRequest implements Adapter.SendRequest. The scripted outcome is
// delivered on a separate goroutine, as a real telephony stack would.
func (a *SimulatedAdapter) SendRequest(_ context.Context, key session.Key, text string, cb Callback) (Ack, error) {
	a.mu.Lock()
	steps := a.script[text]
	var step Step
	if len(steps) > 0 {
		step = steps[0]
		a.script[text] = steps[1:]
	} else {
		step = Step{Fail: true, FailureCode: ussderr.FailureErrorInRequest}
	}
	a.mu.Unlock()

	a.logger.Debug("simulated request submitted",
		zap.Int("key", int(key)),
		zap.String("text", text))

	go func() {
		time.Sleep(a.Delay)
		if step.Fail {
			cb.OnFailure(key, step.FailureCode)
			return
		}
		cb.OnSuccess(key, step.Reply)
	}()

	return Ack{Handle: "sim-" + uuid.NewString()}, nil
}
