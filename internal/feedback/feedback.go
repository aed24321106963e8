// Package feedback accepts anonymous reader feedback and forwards it to the
// site owner by mail.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
)

const (
	// MaxLength is the longest accepted message, in characters.
	MaxLength = 1500

	Subject = "New anonymous feedback"

	// ResendFallbackFrom is the sender Resend accepts without a verified
	// domain.
	ResendFallbackFrom = "onboarding@resend.dev"
)

// ErrTooLong is returned for messages over MaxLength.
var ErrTooLong = errors.New("feedback is too long")

// Submission is one accepted message.
type Submission struct {
	CreatedAt time.Time `json:"createdAt"`
	Message   string    `json:"message"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// Mail is a composed notification.
type Mail struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a Mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
	// Transport names the mailer in responses and metrics.
	Transport() string
}

// Notifier receives a copy of every submission before it is mailed.
type Notifier interface {
	Notify(ctx context.Context, s Submission) error
}

// Recorder counts delivered and failed submissions.
type Recorder interface {
	FeedbackDelivered(transport, outcome string)
}

// Receipt reports how a submission was handled.
type Receipt struct {
	Received         bool   `json:"received"`
	DeliveredToInbox bool   `json:"deliveredToInbox"`
	Transport        string `json:"transport"`
}

// Config holds the mail addresses.
type Config struct {
	To   string
	From string
}

// Service validates submissions and mails them.
type Service struct {
	cfg      Config
	mailer   Mailer
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier forwards each submission to n, typically a Webhook.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder attaches a delivery Recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. A nil mailer accepts nothing and reports
// ErrMisconfigured.
func New(cfg Config, mailer Mailer, opts ...Option) *Service {
	s := &Service{cfg: cfg, mailer: mailer, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.From == "" && mailer != nil && mailer.Transport() == TransportResend {
		s.cfg.From = ResendFallbackFrom
	}
	return s
}

// Submit validates message and mails it to the configured inbox.
func (s *Service) Submit(ctx context.Context, message, userAgent string) (Receipt, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Receipt{}, apperr.Validation("Feedback message is required.")
	}
	if utf8.RuneCountInString(message) > MaxLength {
		return Receipt{}, ErrTooLong
	}

	sub := Submission{
		CreatedAt: s.now().UTC(),
		Message:   trimmed,
		UserAgent: userAgent,
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, sub); err != nil {
			s.logger.Warn("feedback webhook failed", slog.String("error", err.Error()))
		}
	} else {
		s.logger.Info("anonymous feedback received",
			slog.Int("length", utf8.RuneCountInString(sub.Message)),
			slog.String("user_agent", sub.UserAgent))
	}

	if s.mailer == nil {
		return Receipt{}, fmt.Errorf("%w: no feedback mail transport", apperr.ErrMisconfigured)
	}
	if s.cfg.From == "" || s.cfg.To == "" {
		return Receipt{}, fmt.Errorf("%w: feedback from and to addresses are required", apperr.ErrMisconfigured)
	}

	transport := s.mailer.Transport()
	if err := s.mailer.Send(ctx, Compose(sub, s.cfg.From, s.cfg.To)); err != nil {
		s.record(transport, "error")
		return Receipt{}, fmt.Errorf("send feedback via %s: %w", transport, err)
	}
	s.record(transport, "ok")
	return Receipt{Received: true, DeliveredToInbox: true, Transport: transport}, nil
}

func (s *Service) record(transport, outcome string) {
	if s.recorder != nil {
		s.recorder.FeedbackDelivered(transport, outcome)
	}
}

// Compose renders sub as a plain text and HTML mail.
func Compose(sub Submission, from, to string) Mail {
	ua := sub.UserAgent
	if ua == "" {
		ua = "unknown"
	}
	sent := sub.CreatedAt.Format(time.RFC3339)

	text := fmt.Sprintf("%s\n\n--\nSent at: %s\nUser agent: %s", sub.Message, sent, ua)

	body := strings.ReplaceAll(html.EscapeString(sub.Message), "\n", "<br />")
	htmlBody := `<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; line-height: 1.6; color: #1f2937;">` + "\n" +
		`<p style="margin: 0 0 16px 0; font-size: 15px;">` + body + "</p>\n" +
		`<hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;" />` + "\n" +
		`<div style="font-size: 13px; color: #6b7280;">` + "\n" +
		`<p style="margin: 0;"><strong>Sent at:</strong> ` + sent + "</p>\n" +
		`<p style="margin: 0;"><strong>User agent:</strong> ` + html.EscapeString(ua) + "</p>\n" +
		"</div>\n</div>"

	return Mail{From: from, To: []string{to}, Subject: Subject, Text: text, HTML: htmlBody}
}
