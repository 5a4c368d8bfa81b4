package sim

import (
	"context"
	"sync"
)

// StaticProvider serves a fixed, swappable SIM list. It backs the simulated
// platform and tests; Set models inserting or removing a SIM at runtime.
type StaticProvider struct {
	mu      sync.RWMutex
	sims    []Info
	network NetworkStatus
}

var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider creates a provider serving the given SIMs. The network
// starts out available on LTE with full signal; SetNetwork overrides it.
func NewStaticProvider(sims ...Info) *StaticProvider {
	return &StaticProvider{
		sims:    sims,
		network: NetworkStatus{IsAvailable: true, NetworkType: "LTE", SignalStrength: 4},
	}
}

// Set replaces the SIM list.
func (p *StaticProvider) Set(sims ...Info) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sims = sims
}

// SetNetwork replaces the reported network status.
func (p *StaticProvider) SetNetwork(status NetworkStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.network = status
}

// List implements Provider.List.
func (p *StaticProvider) List(_ context.Context) ([]Info, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Info, len(p.sims))
	copy(out, p.sims)
	return out, nil
}

// Carrier implements Provider.Carrier.
func (p *StaticProvider) Carrier(_ context.Context, subscriptionID *int) (CarrierInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.sims {
		if subscriptionID == nil || s.SubscriptionID == *subscriptionID {
			return CarrierInfo{
				Name:       s.CarrierName,
				MCC:        s.MobileCountryCode,
				MNC:        s.MobileNetworkCode,
				CountryISO: s.CountryISO,
			}, nil
		}
	}
	return CarrierInfo{}, nil
}

// Network implements Provider.Network.
func (p *StaticProvider) Network(_ context.Context) (NetworkStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.network, nil
}
