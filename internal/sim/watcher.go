package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/events"
)

// Watcher polls a provider and publishes simStateChanged when the set of
// subscriptions changes.
type Watcher struct {
	logger   *zap.Logger
	provider Provider
	bus      *events.Bus
	interval time.Duration
}

// NewWatcher creates a watcher polling provider every interval.
func NewWatcher(logger *zap.Logger, provider Provider, bus *events.Bus, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		logger:   logger.Named("sim.watcher"),
		provider: provider,
		bus:      bus,
		interval: interval,
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.fingerprint(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := w.fingerprint(ctx)
			if current != last {
				w.logger.Info("sim set changed", zap.String("sims", current))
				sims, _ := w.provider.List(ctx)
				w.bus.Publish(events.EventSimState, &events.SimStateEvent{Count: len(sims)})
				last = current
			}
		}
	}
}

func (w *Watcher) fingerprint(ctx context.Context) string {
	sims, err := w.provider.List(ctx)
	if err != nil {
		w.logger.Warn("sim enumeration failed", zap.Error(err))
		return ""
	}
	fp := ""
	for _, s := range sims {
		fp += fmt.Sprintf("%d:%d:%s;", s.SlotIndex, s.SubscriptionID, s.CarrierName)
	}
	return fp
}
