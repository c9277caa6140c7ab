package api

import (
	"encoding/json"
	"net/http"
)

type deviceLogsRequest struct {
	Logs []string `json:"logs"`
}

// deviceLogs receives diagnostic messages Wallet posts when something goes
// wrong talking to us. Always 200: a device retrying log delivery helps
// nobody.
func (a *API) deviceLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.loggerFromCtx(ctx)

	var body deviceLogsRequest
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		logger.WarnContext(ctx, "Unparseable device log payload", "error", err)

		w.WriteHeader(http.StatusOK)
		return
	}

	for _, line := range body.Logs {
		logger.InfoContext(ctx, "Device log", "message", line)
	}

	w.WriteHeader(http.StatusOK)
}
