package server

import (
	"encoding/json"
	"net/http"

	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/logger"
)

// HeaderProfileID carries the acting profile id, resolved by the upstream
// gateway that owns authentication.
const HeaderProfileID = "X-Profile-ID"

// ProfileID returns the acting profile id, empty for anonymous callers.
func ProfileID(r *http.Request) string {
	return r.Header.Get(HeaderProfileID)
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("failed to encode response", "err", err)
		}
	}
}

// WriteError maps a service error onto a status code and a JSON body.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
