package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/membercard-labs/pass-updates/updates"
)

type triggerUpdateRequest struct {
	// Message, if set, makes the wake-up push visible to the member
	// instead of silent.
	Message *string `json:"message,omitempty"`
}

type triggerUpdateResponse struct {
	DevicesNotified int `json:"devicesNotified"`
	DevicesFailed   int `json:"devicesFailed"`
}

// triggerPassUpdate is the HTTP face of updates.Trigger for the rest of the
// platform: any service that mutates pass-displayed data calls it after the
// write commits.
func (a *API) triggerPassUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.loggerFromCtx(ctx)

	apiKey := r.Header.Get("X-Api-Key")
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.triggerAPIKey)) != 1 {
		logger.WarnContext(ctx, "Rejected trigger call with bad API key")

		a.writeError(w, http.StatusUnauthorized, AuthError, "Invalid API key")
		return
	}

	serialNumber := r.PathValue("serialNumber")

	var body triggerUpdateRequest
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "Invalid body for trigger", "error", err)

		a.writeError(w, http.StatusBadRequest, InvalidBody, "Body must be empty or JSON")
		return
	}

	result, err := updates.Trigger(ctx, serialNumber, body.Message, a.db, a.db, a.dispatcher, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to trigger pass update", "error", err, "serialNumber", serialNumber)

		a.writeError(w, http.StatusInternalServerError, InternalError, "Failed to trigger update")
		return
	}

	a.writeJSON(w, http.StatusOK, triggerUpdateResponse{
		DevicesNotified: result.DevicesNotified,
		DevicesFailed:   result.DevicesFailed,
	})
}
