package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/membercard-labs/pass-updates/api"
	"github.com/membercard-labs/pass-updates/dynamo"
	"github.com/membercard-labs/pass-updates/push"
)

func main() {
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	settings := getServerSettingsFromEnv()

	env := api.LOCAL
	if settings.Env == "PROD" {
		env = api.PROD
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("Failed to load AWS config", "error", err)
		os.Exit(1)
	}

	db := dynamo.NewDB(dynamodb.NewFromConfig(cfg), settings.TableName)

	transport, err := createPushTransport(logger, env)
	if err != nil {
		logger.Error("Failed to create push transport", "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	dispatcher := push.NewDispatcher(transport, logger)

	passAPI := api.NewAPI(db, dispatcher, logger, env, settings.TriggerAPIKey)

	s := &http.Server{
		Handler:           passAPI.Handler(),
		Addr:              net.JoinHostPort(settings.Host, settings.Port),
		ReadHeaderTimeout: time.Second * 10,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", "addr", s.Addr)

		err := s.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("Shutting down")

	drainCtx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	err = s.Shutdown(drainCtx)
	if err != nil {
		logger.Error("Failed to drain server", "error", err)
	}
}

type ServerSettings struct {
	Host          string
	Port          string
	Env           string
	TableName     string
	TriggerAPIKey string
}

func getServerSettingsFromEnv() ServerSettings {
	return ServerSettings{
		Host:          getEnvOrDefault("HOST", "0.0.0.0"),
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "LOCAL"),
		TableName:     getEnvOrDefault("DYNAMO_TABLE_NAME", "PassUpdates"),
		TriggerAPIKey: getEnvOrDefault("TRIGGER_API_KEY", ""),
	}
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return defaultVal
}
