package passes

import (
	"context"
	"time"
)

// Pass is the update-relevant state of one issued membership pass.
// Pass content itself (fields, barcode, artwork) is owned elsewhere;
// this service only tracks when a pass last changed.
type Pass struct {
	SerialNumber        string
	PassTypeID          string
	Version             int
	AuthenticationToken string
	LastModified        time.Time
	Voided              bool
}

type Repository interface {
	GetPass(ctx context.Context, serialNumber string) (Pass, error)
	GetPasses(ctx context.Context, serialNumbers []string) ([]Pass, error)
	CreatePass(ctx context.Context, pass Pass) error
	// BumpLastModified moves the pass's LastModified to the given time and
	// increments its version. Callers are responsible for picking a time
	// strictly after the pass's current LastModified.
	BumpLastModified(ctx context.Context, serialNumber string, lastModified time.Time) error
	VoidPass(ctx context.Context, serialNumber string) error
}

// NextModifiedTime picks the revision timestamp for an update happening now.
// Revision timestamps are millisecond-granular, matching the watermark wire
// format, and the result always strictly exceeds prev, even if the wall
// clock has not advanced past it.
func NextModifiedTime(prev time.Time, now time.Time) time.Time {
	prev = prev.Truncate(time.Millisecond)
	now = now.Truncate(time.Millisecond)

	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}
