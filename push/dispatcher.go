package push

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	// Undelivered wake-ups are worthless after an hour; the device's next
	// poll covers anything the push network dropped.
	notificationTTL = time.Hour

	maxConcurrentSends = 16
)

var tracer = otel.Tracer("github.com/membercard-labs/pass-updates/push")

type Dispatcher struct {
	transport Transport
	logger    *slog.Logger
}

func NewDispatcher(transport Transport, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		logger:    logger,
	}
}

type DeliveryFailure struct {
	Token     string
	Permanent bool
	Err       error
}

type BulkResult struct {
	Total    int
	Sent     int
	Failed   int
	Failures []DeliveryFailure
}

// Notify sends one wake-up notification. A nil message means a silent
// content-available push.
func (d *Dispatcher) Notify(ctx context.Context, passTypeID string, token string, message *string) error {
	return d.transport.Send(ctx, Notification{
		Token:      token,
		PassTypeID: passTypeID,
		Message:    message,
		Expiration: time.Now().Add(notificationTTL),
	})
}

// BulkNotify delivers to every token concurrently. One token's failure never
// aborts delivery to the others; the caller gets the aggregate plus the
// per-token failures so it can deactivate permanently dead tokens.
func (d *Dispatcher) BulkNotify(ctx context.Context, passTypeID string, tokens []string, message *string) BulkResult {
	ctx, span := tracer.Start(ctx, "push.BulkNotify")
	defer span.End()
	span.SetAttributes(attribute.Int("push.token_count", len(tokens)))

	failures := make([]DeliveryFailure, len(tokens))

	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)
	for i, token := range tokens {
		g.Go(func() error {
			err := d.Notify(ctx, passTypeID, token, message)
			if err != nil {
				failures[i] = DeliveryFailure{
					Token:     token,
					Permanent: IsPermanent(err),
					Err:       err,
				}
			}
			return nil
		})
	}
	// Goroutines only record into their own slot, never error
	_ = g.Wait()

	result := BulkResult{Total: len(tokens)}
	for _, f := range failures {
		if f.Err == nil {
			result.Sent++
			continue
		}
		result.Failed++
		result.Failures = append(result.Failures, f)

		d.logger.WarnContext(ctx, "Push delivery failed",
			slog.String("token", f.Token),
			slog.Bool("permanent", f.Permanent),
			slog.String("error", f.Err.Error()),
		)
	}
	span.SetAttributes(attribute.Int("push.failed", result.Failed))

	return result
}
