package registrations

import (
	"context"
	"fmt"
	"time"

	"github.com/membercard-labs/pass-updates/passes"
)

type ChangesResult int

const (
	// CHANGES_FOUND means at least one registered pass changed since the
	// watermark.
	CHANGES_FOUND ChangesResult = iota
	// NO_CHANGES means the device has active registrations but none of
	// them changed.
	NO_CHANGES
	// NO_REGISTRATIONS means the device has no active registrations at
	// all, so it should stop polling entirely.
	NO_REGISTRATIONS
)

type ChangesResponse struct {
	Result        ChangesResult
	SerialNumbers []string
	// LastUpdated is the new watermark: the max LastModified across every
	// non-voided pass the device is registered for, changed or not.
	LastUpdated time.Time
}

// ChangedSerials answers "which of my registered passes changed since I last
// checked" for one device. A nil since means the device has no watermark yet
// and every registered pass counts as changed.
//
// Voided passes are excluded entirely: they never show up as changed and do
// not contribute to the watermark, so a device whose every pass is voided
// behaves the same as one with no registrations.
func ChangedSerials(ctx context.Context, deviceID string, passTypeID string, since *time.Time, regRepo Repository, passRepo passes.Repository) (ChangesResponse, error) {
	serials, err := regRepo.ListActiveSerials(ctx, deviceID, passTypeID)
	if err != nil {
		return ChangesResponse{}, NewFailedToFetchError(fmt.Sprintf("Failed to list active serials for device %q", deviceID), err)
	}
	if len(serials) == 0 {
		return ChangesResponse{Result: NO_REGISTRATIONS}, nil
	}

	allPasses, err := passRepo.GetPasses(ctx, serials)
	if err != nil {
		return ChangesResponse{}, NewFailedToFetchError(fmt.Sprintf("Failed to fetch passes for device %q", deviceID), err)
	}

	var changed []string
	var watermark time.Time
	anyActive := false
	for _, p := range allPasses {
		if p.Voided {
			continue
		}
		anyActive = true

		// Devices only ever see millisecond watermarks, so the change test
		// has to happen at that granularity too
		lastModified := p.LastModified.Truncate(time.Millisecond)

		if lastModified.After(watermark) {
			watermark = lastModified
		}

		if since == nil || lastModified.After(*since) {
			changed = append(changed, p.SerialNumber)
		}
	}

	if !anyActive {
		// Every registered pass is voided
		return ChangesResponse{Result: NO_REGISTRATIONS}, nil
	}

	if len(changed) == 0 {
		return ChangesResponse{Result: NO_CHANGES, LastUpdated: watermark}, nil
	}

	return ChangesResponse{
		Result:        CHANGES_FOUND,
		SerialNumbers: changed,
		LastUpdated:   watermark,
	}, nil
}
