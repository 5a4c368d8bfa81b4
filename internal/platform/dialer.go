package platform

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/session"
	"github.com/isharaux/ussd-gateway/internal/ussderr"
)

// OpenURL launches the device dialer with a tel: URL. It is the only
// telephony primitive a one-shot backend has.
type OpenURL func(ctx context.Context, telURL string) error

// DialerAdapter is a one-shot backend: it hands the code to the dialer and
// forgets it. There is no response correlation; the only observable outcome
// is whether the dialer launch succeeded, so SendRequest collapses to a
// synchronous final ack and the callback is never invoked.
type DialerAdapter struct {
	logger *zap.Logger
	open   OpenURL
}

var _ Adapter = (*DialerAdapter)(nil)

// NewDialerAdapter creates a one-shot backend around the given opener.
func NewDialerAdapter(logger *zap.Logger, open OpenURL) *DialerAdapter {
	return &DialerAdapter{logger: logger.Named("platform.dialer"), open: open}
}

// Capabilities implements Adapter.Capabilities.
func (a *DialerAdapter) Capabilities() Capabilities {
	return Capabilities{}
}

// SendRequest implements Adapter.SendRequest.
func (a *DialerAdapter) SendRequest(ctx context.Context, key session.Key, text string, _ Callback) (Ack, error) {
	telURL := "tel:" + url.PathEscape(text)
	a.logger.Debug("launching dialer", zap.String("url", telURL))

	if err := a.open(ctx, telURL); err != nil {
		return Ack{}, ussderr.Wrap(ussderr.KindUnknown, "could not open dialer", err)
	}
	return Ack{Handle: telURL, Final: true}, nil
}
