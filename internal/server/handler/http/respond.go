package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/issuetracker/internal/apperr"
)

// messageResponse is the body of endpoints that only acknowledge.
type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrAuth:
		return http.StatusUnauthorized
	case apperr.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the status matching err. Unclassified
// errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, apperr.Detail(err))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
