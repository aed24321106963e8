package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/editor"
)

const maxJSONBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error   string         `json:"error" validate:"required"`
	Part    string         `json:"part,omitempty" example:"tags"`
	Details map[string]any `json:"details,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// errorStatus maps err onto a status and a client-facing body.
func errorStatus(err error) (int, errResponse) {
	var up *apperr.UpstreamError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, errorBody(validationMessage(err))
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody("unauthorized")
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, errorBody("not found")
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, errorBody("update conflict: reload and retry")
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, errorBody("already exists")
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests, errorBody(err.Error())
	case errors.Is(err, apperr.ErrMisconfigured):
		return http.StatusInternalServerError, errorBody("server misconfigured")
	case errors.As(err, &up):
		return http.StatusBadGateway, errResponse{Error: err.Error(), Details: up.Payload}
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return http.StatusBadGateway, errorBody(err.Error())
	default:
		return http.StatusInternalServerError, errorBody("internal error")
	}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	status, body := errorStatus(err)

	var se *editor.SaveError
	if errors.As(err, &se) {
		body.Part = string(se.Part)
		if status == http.StatusInternalServerError {
			body.Error = se.Error()
		}
	}
	var rl *apperr.RateLimitedError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(apperr.RetryAfterSeconds(rl.RetryAfter)))
	}

	if status >= http.StatusInternalServerError {
		var up *apperr.UpstreamError
		if errors.As(err, &up) {
			attrs = append(attrs, slog.String("diagnostic", up.Diagnostic()))
		}
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.Error(msg, attrs...)
	}
	writeJSON(w, status, body)
}

func validationMessage(err error) string {
	prefix := apperr.ErrValidation.Error() + ": "
	msg := err.Error()
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
