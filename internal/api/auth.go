package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/auth"
)

// clientID identifies the caller for lockout tracking. RealIP has already
// replaced RemoteAddr with the forwarded address when one is present.
func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Login handles POST /api/auth.
//
//	@Summary		Exchange the admin password for a session cookie
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Password"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	AuthResponse
//	@Failure		401		{object}	AuthResponse
//	@Failure		429		{object}	AuthResponse
//	@Failure		500		{object}	AuthResponse
//	@Router			/auth [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Message: "Invalid request"})
		return
	}

	client := clientID(r)
	sess, err := h.gate.Login(r.Context(), client, req.Password)
	if err != nil {
		var (
			rl  *apperr.RateLimitedError
			bad *auth.InvalidPasswordError
		)
		switch {
		case errors.As(err, &rl):
			secs := apperr.RetryAfterSeconds(rl.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, AuthResponse{
				Message: fmt.Sprintf("Too many attempts. Try again in %d seconds.", secs),
			})
		case errors.As(err, &bad):
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: bad.Error()})
		case errors.Is(err, apperr.ErrMisconfigured):
			writeJSON(w, http.StatusInternalServerError, AuthResponse{Message: "Authentication system misconfigured"})
		default:
			slog.Error("login failed", slog.String("client", client), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, AuthResponse{Message: "Authentication failed"})
		}
		return
	}

	http.SetCookie(w, h.gate.Cookie(sess))
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Authentication successful"})
}

// Logout handles POST /api/auth/logout.
//
//	@Summary		Clear the session cookie
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	AuthResponse
//	@Router			/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.gate.ClearCookie())
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Logged out successfully"})
}

// Session handles GET /api/auth/session.
//
//	@Summary		Report whether the caller holds an admin session
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Router			/auth/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: h.gate.Authenticated(r)})
}
