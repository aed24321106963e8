package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Defaults for Policy.
const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 30 * time.Second
)

// maxSwapRetries bounds the optimistic update loop for one key.
const maxSwapRetries = 32

// ErrContention is returned when a record kept changing under concurrent
// updates.
var ErrContention = errors.New("ratelimit: too much contention on client record")

// Policy configures lockout behaviour.
type Policy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultPolicy returns 5 attempts with a 30 second lock.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, LockDuration: DefaultLockDuration}
}

// Status is the outcome of a check or a recorded failure.
type Status struct {
	Locked            bool
	RetryAfter        time.Duration
	AttemptsRemaining int
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (s Status) RetryAfterSeconds() int {
	if s.RetryAfter <= 0 {
		return 0
	}
	return int((s.RetryAfter + time.Second - 1) / time.Second)
}

// Observer is notified about failures and lockouts.
type Observer interface {
	AuthFailure()
	AuthLockout()
}

// Limiter guards a shared secret check.
type Limiter struct {
	store    Store
	policy   Policy
	now      func() time.Time
	observer Observer
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(l *Limiter) { l.observer = o }
}

// New creates a Limiter on store. Non-positive policy fields fall back to
// the defaults.
func New(store Store, policy Policy, opts ...Option) *Limiter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.LockDuration <= 0 {
		policy.LockDuration = DefaultLockDuration
	}
	l := &Limiter{store: store, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckLocked reports whether clientID is currently locked out.
func (l *Limiter) CheckLocked(ctx context.Context, clientID string) (Status, error) {
	rec, _, err := l.store.Get(ctx, clientID)
	if err != nil {
		return Status{}, err
	}
	return l.status(rec, l.now()), nil
}

// RecordFailure counts a failed attempt. While locked the counter is frozen
// and the current lock is reported unchanged.
func (l *Limiter) RecordFailure(ctx context.Context, clientID string) (Status, error) {
	for range maxSwapRetries {
		rec, existed, err := l.store.Get(ctx, clientID)
		if err != nil {
			return Status{}, err
		}
		now := l.now()
		if st := l.status(rec, now); st.Locked {
			return st, nil
		}

		next := Record{FailureCount: rec.FailureCount + 1}
		if next.FailureCount >= l.policy.MaxAttempts {
			next.LockedUntil = now.Add(l.policy.LockDuration)
		}
		ok, err := l.store.CompareAndSwap(ctx, clientID, rec, existed, next)
		if err != nil {
			return Status{}, err
		}
		if !ok {
			continue
		}
		st := l.status(next, now)
		if l.observer != nil {
			l.observer.AuthFailure()
			if st.Locked {
				l.observer.AuthLockout()
			}
		}
		return st, nil
	}
	return Status{}, ErrContention
}

// RecordSuccess clears the record for clientID.
func (l *Limiter) RecordSuccess(ctx context.Context, clientID string) error {
	return l.store.Reset(ctx, clientID)
}

func (l *Limiter) status(rec Record, now time.Time) Status {
	remaining := max(l.policy.MaxAttempts-rec.FailureCount, 0)
	if !rec.LockedUntil.IsZero() && now.Before(rec.LockedUntil) {
		return Status{Locked: true, RetryAfter: rec.LockedUntil.Sub(now), AttemptsRemaining: remaining}
	}
	return Status{AttemptsRemaining: remaining}
}
