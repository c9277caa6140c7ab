package registrations

import (
	"context"
	"time"
)

// Registration ties one device-plus-pass-type installation to one pass
// serial number and the push token updates should be delivered to.
// At most one active registration exists per (DeviceID, PassTypeID,
// SerialNumber); re-registering the same triple is an upsert.
type Registration struct {
	DeviceID     string
	PassTypeID   string
	SerialNumber string
	PushToken    string
	Active       bool
	UpdatedAt    time.Time
}

type Repository interface {
	// Register upserts the registration for (deviceID, passTypeID,
	// serialNumber), replacing the push token and marking it active.
	// Registering an existing triple is success, not conflict.
	Register(ctx context.Context, reg Registration) error
	// Unregister marks the matching registration inactive. Unregistering a
	// triple that was never registered is a no-op success.
	Unregister(ctx context.Context, deviceID string, passTypeID string, serialNumber string) error
	// Deactivate marks every active registration carrying this exact push
	// token inactive. Used after the push transport reports the token as
	// permanently invalid.
	Deactivate(ctx context.Context, pushToken string) error
	// ListActiveTokens returns the distinct push tokens of all active
	// registrations for the given pass serial number.
	ListActiveTokens(ctx context.Context, serialNumber string) ([]string, error)
	// ListActiveSerials returns every serial number the device is actively
	// registered for under the given pass type.
	ListActiveSerials(ctx context.Context, deviceID string, passTypeID string) ([]string, error)
}
