package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/membercard-labs/pass-updates/passes"
	"github.com/membercard-labs/pass-updates/registrations"
	"github.com/membercard-labs/pass-updates/updates"
)

type DB interface {
	registrations.Repository
	passes.Repository
}

type Environment int

const (
	LOCAL Environment = iota
	PROD
)

type ErrorCode string

const (
	EmptyBody        ErrorCode = "EmptyBody"
	InvalidBody      ErrorCode = "InvalidBody"
	InvalidWatermark ErrorCode = "InvalidWatermark"
	AuthError        ErrorCode = "AuthError"
	InternalError    ErrorCode = "InternalError"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type API struct {
	db            DB
	dispatcher    updates.Dispatcher
	logger        *slog.Logger
	env           Environment
	triggerAPIKey string
}

func NewAPI(db DB, dispatcher updates.Dispatcher, logger *slog.Logger, env Environment, triggerAPIKey string) *API {
	return &API{
		db:            db,
		dispatcher:    dispatcher,
		logger:        logger,
		env:           env,
		triggerAPIKey: triggerAPIKey,
	}
}

func (a *API) Handler() http.Handler {
	r := http.NewServeMux()

	r.HandleFunc("POST /v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeIdentifier}/{serialNumber}", a.registerDevice)
	r.HandleFunc("DELETE /v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeIdentifier}/{serialNumber}", a.unregisterDevice)
	r.HandleFunc("GET /v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeIdentifier}", a.listChangedSerials)
	r.HandleFunc("POST /v1/log", a.deviceLogs)
	r.HandleFunc("POST /internal/v1/passes/{serialNumber}/updates", a.triggerPassUpdate)

	return useMiddlewares(r,
		a.loggingMiddleware(),
		a.requestIDMiddleware(),
		a.corsMiddleware(),
	)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		a.logger.Error("Failed to marshal response body", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBody)
}

func (a *API) writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	a.writeJSON(w, status, Error{Code: code, Message: message})
}
