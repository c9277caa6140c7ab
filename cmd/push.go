package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/membercard-labs/pass-updates/api"
	"github.com/membercard-labs/pass-updates/push"
	"github.com/membercard-labs/pass-updates/push/apns"
)

var _ push.Transport = &PushLogger{}

// push.Transport that logs out the notification contents for local dev
type PushLogger struct {
	logger *slog.Logger
}

func (pl *PushLogger) Send(ctx context.Context, n push.Notification) error {
	pl.logger.Info("push that would be sent", slog.Any("notification", n))

	return nil
}

func (pl *PushLogger) Close() error {
	return nil
}

func createProdAPNSTransport() (*apns.Transport, error) {
	keyFile := os.Getenv("APNS_KEY_FILE")

	authKey, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read APNs key file %q: %w", keyFile, err)
	}

	client, err := apns.NewProductionClient(authKey, os.Getenv("APNS_KEY_ID"), os.Getenv("APNS_TEAM_ID"))
	if err != nil {
		return nil, err
	}

	return apns.NewTransport(client), nil
}

func createPushTransport(logger *slog.Logger, env api.Environment) (push.Transport, error) {
	if env == api.LOCAL {
		return &PushLogger{logger: logger}, nil
	}

	return createProdAPNSTransport()
}
