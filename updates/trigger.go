// Package updates ties a pass revision bump to push fan-out. Trigger is the
// single choke point every business writer calls after mutating data that a
// pass displays.
package updates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/membercard-labs/pass-updates/passes"
	"github.com/membercard-labs/pass-updates/push"
	"github.com/membercard-labs/pass-updates/registrations"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/membercard-labs/pass-updates/updates")

type Result struct {
	DevicesNotified int
	DevicesFailed   int
}

type Dispatcher interface {
	BulkNotify(ctx context.Context, passTypeID string, tokens []string, message *string) push.BulkResult
}

// Trigger bumps the pass's revision timestamp and wakes every registered
// device. A missing or voided pass is a no-op success, as is a pass no
// device is registered for. Per-device delivery failures never fail the
// trigger; tokens APNs reports as permanently dead get their registrations
// deactivated.
//
// The revision bump is written before tokens are read, so a device polling
// concurrently either sees the old timestamp and catches the change on its
// next poll, or sees the new one.
func Trigger(ctx context.Context, serialNumber string, message *string, passRepo passes.Repository, regRepo registrations.Repository, dispatcher Dispatcher, logger *slog.Logger) (Result, error) {
	ctx, span := tracer.Start(ctx, "updates.Trigger")
	defer span.End()
	span.SetAttributes(attribute.String("pass.serial_number", serialNumber))

	pass, err := passRepo.GetPass(ctx, serialNumber)
	if err != nil {
		var passErr *passes.Error
		if errors.As(err, &passErr) && passErr.Reason == passes.REASON_PASS_DOES_NOT_EXIST {
			logger.InfoContext(ctx, "No pass to update", slog.String("serialNumber", serialNumber))
			return Result{}, nil
		}

		return Result{}, fmt.Errorf("failed to fetch pass %q: %w", serialNumber, err)
	}
	if pass.Voided {
		logger.InfoContext(ctx, "Pass is voided, skipping update", slog.String("serialNumber", serialNumber))
		return Result{}, nil
	}

	bumpedAt := passes.NextModifiedTime(pass.LastModified, time.Now())
	err = passRepo.BumpLastModified(ctx, serialNumber, bumpedAt)
	if err != nil {
		return Result{}, fmt.Errorf("failed to bump last modified for pass %q: %w", serialNumber, err)
	}

	tokens, err := regRepo.ListActiveTokens(ctx, serialNumber)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list tokens for pass %q: %w", serialNumber, err)
	}
	if len(tokens) == 0 {
		return Result{}, nil
	}

	bulk := dispatcher.BulkNotify(ctx, pass.PassTypeID, tokens, message)

	for _, failure := range bulk.Failures {
		if !failure.Permanent {
			continue
		}

		err := regRepo.Deactivate(ctx, failure.Token)
		if err != nil {
			// The token stays active and gets retried on the next
			// trigger; APNs will keep reporting it as dead.
			logger.ErrorContext(ctx, "Failed to deactivate dead token",
				slog.String("token", failure.Token),
				slog.String("error", err.Error()),
			)
		}
	}

	return Result{
		DevicesNotified: bulk.Sent,
		DevicesFailed:   bulk.Failed,
	}, nil
}
