package push

import (
	"context"
	"time"
)

// Notification is one wake-up message addressed to a single device token.
// With no Message it is a silent content-available push telling the device
// to re-fetch its pass without alerting the user.
type Notification struct {
	Token      string
	PassTypeID string
	Message    *string
	Expiration time.Time
}

// Transport delivers a notification to the push network. Implementations
// classify failures through the typed errors in this package: a
// REASON_TOKEN_INVALID error means the token will never work again and the
// registration behind it should be deactivated.
type Transport interface {
	Send(ctx context.Context, notification Notification) error
	Close() error
}
