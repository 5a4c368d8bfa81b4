// Package sim exposes SIM subscription information. Actual enumeration is
// owned by the platform; this package defines the data shapes, a provider
// contract and a change watcher feeding the simStateChanged event.
package sim

import (
	"context"
)

// Info describes one installed SIM subscription.
type Info struct {
	SlotIndex         int    `json:"slotIndex"`
	SubscriptionID    int    `json:"subscriptionId"`
	CarrierName       string `json:"carrierName,omitempty"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	CountryISO        string `json:"countryIso,omitempty"`
	MobileCountryCode string `json:"mobileCountryCode,omitempty"`
	MobileNetworkCode string `json:"mobileNetworkCode,omitempty"`
	IsDefaultForCalls bool   `json:"isDefaultForCalls"`
	IsDefaultForData  bool   `json:"isDefaultForData"`
	IsRoaming         bool   `json:"isRoaming"`
}

// CarrierInfo describes the network a subscription is registered on.
type CarrierInfo struct {
	Name       string `json:"name"`
	MCC        string `json:"mcc,omitempty"`
	MNC        string `json:"mnc,omitempty"`
	CountryISO string `json:"countryIso,omitempty"`
}

// NetworkStatus reports whether the cellular network can carry a USSD
// request right now.
type NetworkStatus struct {
	IsAvailable bool   `json:"isAvailable"`
	NetworkType string `json:"networkType,omitempty"`
	IsRoaming   bool   `json:"isRoaming"`
	// SignalStrength is 0-4, or -1 when unknown.
	SignalStrength int `json:"signalStrength"`
}

// Provider enumerates the installed SIM subscriptions.
type Provider interface {
	List(ctx context.Context) ([]Info, error)

	// Carrier returns network information for a subscription;
	// subscriptionID nil selects the default subscription.
	Carrier(ctx context.Context, subscriptionID *int) (CarrierInfo, error)

	// Network reports the current cellular network status.
	Network(ctx context.Context) (NetworkStatus, error)
}
