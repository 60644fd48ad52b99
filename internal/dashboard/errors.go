package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/imamik/devsim/internal/provisioning"
	"github.com/imamik/devsim/internal/store/sqlite"
)

var (
	errRateLimited = errors.New("too many provisioning requests, try again shortly")
	errInvalidJSON = errors.New("invalid JSON")
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// httpStatus maps an error to an HTTP status code.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, provisioning.ErrInvalidDescriptor), errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest
	case errors.Is(err, provisioning.ErrNothingToRetry):
		return http.StatusConflict
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
