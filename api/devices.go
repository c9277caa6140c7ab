package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/membercard-labs/pass-updates/passes"
	"github.com/membercard-labs/pass-updates/registrations"
)

type registerDeviceRequest struct {
	PushToken string `json:"pushToken"`
}

type changedSerialsResponse struct {
	SerialNumbers []string `json:"serialNumbers"`
	LastUpdated   string   `json:"lastUpdated"`
}

func (a *API) registerDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.loggerFromCtx(ctx)

	deviceID := r.PathValue("deviceLibraryIdentifier")
	passTypeID := r.PathValue("passTypeIdentifier")
	serialNumber := r.PathValue("serialNumber")

	if _, err := a.authorizePass(ctx, r, passTypeID, serialNumber); err != nil {
		a.handleAuthFailure(ctx, w, err)
		return
	}

	var body registerDeviceRequest
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		logger.WarnContext(ctx, "Invalid body for device registration", "error", err)

		a.writeError(w, http.StatusBadRequest, InvalidBody, "Body must be JSON with a pushToken")
		return
	}
	if body.PushToken == "" {
		logger.WarnContext(ctx, "Missing push token for device registration")

		a.writeError(w, http.StatusBadRequest, InvalidBody, "pushToken must not be empty")
		return
	}

	err = a.db.Register(ctx, registrations.Registration{
		DeviceID:     deviceID,
		PassTypeID:   passTypeID,
		SerialNumber: serialNumber,
		PushToken:    body.PushToken,
		Active:       true,
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to register device", "error", err)

		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to register device")
		return
	}

	// Re-registration is indistinguishable from first registration on
	// purpose: both are success to the device.
	w.WriteHeader(http.StatusOK)
}

func (a *API) unregisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.loggerFromCtx(ctx)

	deviceID := r.PathValue("deviceLibraryIdentifier")
	passTypeID := r.PathValue("passTypeIdentifier")
	serialNumber := r.PathValue("serialNumber")

	if _, err := a.authorizePass(ctx, r, passTypeID, serialNumber); err != nil {
		a.handleAuthFailure(ctx, w, err)
		return
	}

	err := a.db.Unregister(ctx, deviceID, passTypeID, serialNumber)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to unregister device", "error", err)

		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to unregister device")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) listChangedSerials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.loggerFromCtx(ctx)

	deviceID := r.PathValue("deviceLibraryIdentifier")
	passTypeID := r.PathValue("passTypeIdentifier")

	var since *time.Time
	if raw := r.URL.Query().Get("passesUpdatedSince"); raw != "" {
		parsed, err := parseWatermark(raw)
		if err != nil {
			logger.WarnContext(ctx, "Invalid watermark", "passesUpdatedSince", raw, "error", err)

			a.writeError(w, http.StatusBadRequest, InvalidWatermark, "passesUpdatedSince is not a valid watermark")
			return
		}
		since = &parsed
	}

	result, err := registrations.ChangedSerials(ctx, deviceID, passTypeID, since, a.db, a.db)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to compute changed serials", "error", err, "deviceId", deviceID)

		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to look up changes")
		return
	}

	switch result.Result {
	case registrations.NO_REGISTRATIONS, registrations.NO_CHANGES:
		w.WriteHeader(http.StatusNoContent)
	case registrations.CHANGES_FOUND:
		a.writeJSON(w, http.StatusOK, changedSerialsResponse{
			SerialNumbers: result.SerialNumbers,
			LastUpdated:   formatWatermark(result.LastUpdated),
		})
	default:
		logger.ErrorContext(ctx, "Unknown changes result", "result", int(result.Result))

		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to look up changes")
	}
}

func (a *API) handleAuthFailure(ctx context.Context, w http.ResponseWriter, err error) {
	logger := a.loggerFromCtx(ctx)

	var passErr *passes.Error
	if errors.As(err, &passErr) {
		logger.ErrorContext(ctx, "Failed to fetch pass during auth", "error", err)

		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to authorize request")
		return
	}

	logger.WarnContext(ctx, "Rejected device request", "error", err)

	a.writeError(w, http.StatusUnauthorized, AuthError, "Invalid ApplePass authorization")
}

// The watermark is an opaque unix-milliseconds string to the device; it only
// ever hands back what we gave it.
func formatWatermark(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseWatermark(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.UnixMilli(ms), nil
}
