// Package history keeps a capped, append-only log of USSD requests.
package history

import "context"

// DefaultMaxEntries is the cap on retained entries when a store is built
// without an explicit one; the oldest entry is evicted first.
const DefaultMaxEntries = 100

// Entry is one recorded USSD request.
type Entry struct {
	Code           string `json:"code"`
	Timestamp      int64  `json:"timestamp"`
	Success        bool   `json:"success"`
	Response       string `json:"response,omitempty"`
	SubscriptionID *int   `json:"subscriptionId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Store records and serves history entries.
type Store interface {
	// Append records an entry, evicting the oldest once the store's cap is
	// exceeded.
	Append(ctx context.Context, e Entry) error

	// Recent returns up to limit entries, oldest first. limit <= 0 returns
	// everything retained.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Clear drops all entries.
	Clear(ctx context.Context) error
}
