package feedback

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/http"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// Transport names.
const (
	TransportResend = "resend"
	TransportSMTP   = "smtp"
)

const (
	DefaultResendURL = "https://api.resend.com"
	DefaultTimeout   = 15 * time.Second

	maxErrorBody = 4 << 10
)

// Resend sends mail through the Resend HTTP API.
type Resend struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewResend creates a Resend mailer. An empty baseURL uses the public API.
func NewResend(apiKey, baseURL string, hc *http.Client) *Resend {
	if baseURL == "" {
		baseURL = DefaultResendURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Resend{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Transport implements Mailer.
func (r *Resend) Transport() string { return TransportResend }

// Send implements Mailer.
func (r *Resend) Send(ctx context.Context, m Mail) error {
	body, err := json.Marshal(map[string]any{
		"from":    m.From,
		"to":      m.To,
		"subject": m.Subject,
		"text":    m.Text,
		"html":    m.HTML,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return do(r.http, req)
}

// Webhook posts each submission as JSON to a URL.
type Webhook struct {
	url  string
	http *http.Client
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(url string, hc *http.Client) *Webhook {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Webhook{url: url, http: hc}
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, s Submission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(w.http, req)
}

func do(hc *http.Client, req *http.Request) error {
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Host, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

// SMTPConfig addresses a mail server. Secure selects implicit TLS, as on
// port 465; otherwise STARTTLS is used when the server offers it.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	Username string
	Password string
	Timeout  time.Duration
}

// SMTP sends mail through an authenticated SMTP server.
type SMTP struct {
	cfg SMTPConfig
}

// NewSMTP creates an SMTP mailer. Port defaults to 465.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &SMTP{cfg: cfg}
}

// Transport implements Mailer.
func (s *SMTP) Transport() string { return TransportSMTP }

// Send implements Mailer.
func (s *SMTP) Send(ctx context.Context, m Mail) error {
	msg, err := BuildMessage(m, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	tlsConfig := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	if s.cfg.Secure {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if !s.cfg.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(m.From); err != nil {
		return err
	}
	for _, rcpt := range m.To {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// BuildMessage renders m as a multipart/alternative RFC 5322 message.
func BuildMessage(m Mail, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	parts := []struct{ ctype, body string }{
		{"text/plain; charset=utf-8", m.Text},
		{"text/html; charset=utf-8", m.HTML},
	}
	for _, p := range parts {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qw := quotedprintable.NewWriter(pw)
		if _, err := qw.Write([]byte(p.body)); err != nil {
			return nil, err
		}
		if err := qw.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
