package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

const (
	ctxRequestIDKey = "REQUEST_ID"
	ctxLoggerKey    = "LOGGER"
)

func ctxWithRequestID(ctx context.Context, requestID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

func ctxWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, logger)
}

func (a *API) loggerFromCtx(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxLoggerKey).(*slog.Logger)
	if !ok {
		return a.logger
	}
	return logger
}
