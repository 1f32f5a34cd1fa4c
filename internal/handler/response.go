package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/security/middleware"
)

// errBodyTooLarge marks a request body cut off by middleware.LimitBody
var errBodyTooLarge = errors.New("request body too large")

// envelope is the body shape of every API response:
// {"success": bool, "message": string, ...payload}
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, payload envelope) {
	body := envelope{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeFailure(w http.ResponseWriter, status int, message string, payload envelope) {
	body := envelope{"success": false, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// statusFor maps a domain error to its HTTP status. Partial failures are
// checked first because they wrap arbitrary store errors.
func statusFor(err error) int {
	switch {
	case domain.IsPartialFailure(err):
		return http.StatusInternalServerError
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its mapped status. Internal errors are logged
// and replaced by a generic message.
func writeError(w http.ResponseWriter, log *slog.Logger, err error, payload envelope) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError && !domain.IsPartialFailure(err) {
		log.Error("request failed", slog.String("error", err.Error()))
		message = "internal server error"
	}
	writeFailure(w, status, message, payload)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err)
	}
	return nil
}

// principal returns the caller placed in the context by the auth middleware
func principal(r *http.Request) domain.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}
