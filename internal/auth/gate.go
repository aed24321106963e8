// Package auth implements the admin password gate and its session tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/ratelimit"
)

const (
	// CookieName is the session cookie set on successful login.
	CookieName        = "auth"
	DefaultSessionTTL = 7 * 24 * time.Hour

	adminSubject = "admin"
)

// ErrInvalidToken is returned for expired, malformed or forged sessions.
var ErrInvalidToken = errors.New("invalid session token")

// Config holds the gate secrets.
type Config struct {
	Password      string
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool
}

// Limiter is the lockout policy consulted around each password check.
type Limiter interface {
	CheckLocked(ctx context.Context, clientID string) (ratelimit.Status, error)
	RecordFailure(ctx context.Context, clientID string) (ratelimit.Status, error)
	RecordSuccess(ctx context.Context, clientID string) error
}

// InvalidPasswordError is a rejected password. Locked is set when this
// failure triggered the lockout.
type InvalidPasswordError struct {
	AttemptsRemaining int
	Locked            bool
}

func (e *InvalidPasswordError) Error() string {
	if e.Locked {
		return "Too many failed attempts. Account locked."
	}
	return fmt.Sprintf("Invalid password. %d attempts remaining.", e.AttemptsRemaining)
}

func (e *InvalidPasswordError) Unwrap() error { return apperr.ErrUnauthorized }

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
}

// Session is an issued admin session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Gate checks the admin password behind a Limiter.
type Gate struct {
	cfg     Config
	limiter Limiter
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides time.Now for token issue and validation.
func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

func WithLogger(l *slog.Logger) Option { return func(g *Gate) { g.logger = l } }

// NewGate creates a Gate.
func NewGate(cfg Config, limiter Limiter, opts ...Option) *Gate {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	g := &Gate{cfg: cfg, limiter: limiter, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Login checks password for clientID. A locked client gets
// *apperr.RateLimitedError without the password being looked at; an
// unconfigured password is apperr.ErrMisconfigured; a wrong password is
// *InvalidPasswordError.
func (g *Gate) Login(ctx context.Context, clientID, password string) (Session, error) {
	st, err := g.limiter.CheckLocked(ctx, clientID)
	if err != nil {
		return Session{}, err
	}
	if st.Locked {
		return Session{}, &apperr.RateLimitedError{RetryAfter: st.RetryAfter}
	}
	if g.cfg.Password == "" || g.cfg.SessionSecret == "" {
		g.logger.Error("auth: admin password or session secret not configured")
		return Session{}, fmt.Errorf("%w: authentication system misconfigured", apperr.ErrMisconfigured)
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(g.cfg.Password)) != 1 {
		st, err := g.limiter.RecordFailure(ctx, clientID)
		if err != nil {
			return Session{}, err
		}
		g.logger.Warn("auth: invalid password",
			slog.String("client", clientID),
			slog.Int("remaining", st.AttemptsRemaining),
			slog.Bool("locked", st.Locked))
		return Session{}, &InvalidPasswordError{AttemptsRemaining: st.AttemptsRemaining, Locked: st.Locked}
	}

	if err := g.limiter.RecordSuccess(ctx, clientID); err != nil {
		g.logger.Warn("auth: reset attempts failed", slog.String("client", clientID), slog.String("error", err.Error()))
	}
	return g.issue()
}

func (g *Gate) issue() (Session, error) {
	now := g.now()
	exp := now.Add(g.cfg.SessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte(g.cfg.SessionSecret))
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, ExpiresAt: exp}, nil
}

// Verify validates a session token.
func (g *Gate) Verify(tokenString string) (Claims, error) {
	if tokenString == "" || g.cfg.SessionSecret == "" {
		return Claims{}, ErrInvalidToken
	}
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return []byte(g.cfg.SessionSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithSubject(adminSubject),
	)
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Authenticated reports whether r carries a valid session cookie or bearer
// token.
func (g *Gate) Authenticated(r *http.Request) bool {
	_, err := g.Verify(TokenFromRequest(r))
	return err == nil
}

// TokenFromRequest reads the session cookie, falling back to a bearer
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// Cookie is the httpOnly session cookie for s.
func (g *Gate) Cookie(s Session) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(g.cfg.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie expires the session cookie.
func (g *Gate) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}
