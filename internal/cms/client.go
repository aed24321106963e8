// Package cms is a client for the headless CMS management, upload and
// delivery APIs.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
)

const (
	DefaultManagementURL = "https://api.contentful.com"
	DefaultUploadURL     = "https://upload.contentful.com"
	DefaultDeliveryURL   = "https://cdn.contentful.com"

	maxResponseBytes = 8 << 20
	jsonContentType  = "application/vnd.contentful.management.v1+json"
)

// Config identifies the space and carries the API tokens.
type Config struct {
	SpaceID         string
	Environment     string
	ManagementToken string
	DeliveryToken   string
	Locale          string
	ManagementURL   string
	UploadURL       string
	DeliveryURL     string
	Timeout         time.Duration
}

// Recorder counts CMS calls.
type Recorder interface {
	CMSRequest(op, outcome string)
}

// Client talks to one space environment.
type Client struct {
	cfg      Config
	http     *http.Client
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRecorder attaches a request Recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a Client. Empty URLs and locale fall back to the public
// defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.ManagementURL == "" {
		cfg.ManagementURL = DefaultManagementURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if cfg.DeliveryURL == "" {
		cfg.DeliveryURL = DefaultDeliveryURL
	}
	if cfg.Environment == "" {
		cfg.Environment = "master"
	}
	if cfg.Locale == "" {
		cfg.Locale = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Locale returns the locale used for field maps.
func (c *Client) Locale() string { return c.cfg.Locale }

type request struct {
	op          string
	method      string
	url         string
	token       string
	version     int
	contentType string
	header      http.Header
	body        io.Reader
}

func (c *Client) envPath(base string, parts ...string) string {
	p := fmt.Sprintf("%s/spaces/%s/environments/%s",
		strings.TrimRight(base, "/"), url.PathEscape(c.cfg.SpaceID), url.PathEscape(c.cfg.Environment))
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) management(parts ...string) string { return c.envPath(c.cfg.ManagementURL, parts...) }

func (c *Client) jsonRequest(op, method, u string, version int, in any) (request, error) {
	r := request{op: op, method: method, url: u, token: c.cfg.ManagementToken, version: version}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return r, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		r.body = bytes.NewReader(b)
		r.contentType = jsonContentType
	}
	return r, nil
}

// do executes r and decodes a 2xx body into out. Non-2xx responses become
// *apperr.UpstreamError with the parsed error body.
func (c *Client) do(ctx context.Context, r request, out any) error {
	err := c.roundTrip(ctx, r, out)
	if c.recorder != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.recorder.CMSRequest(r.op, outcome)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.op, err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.version > 0 {
		req.Header.Set("X-Contentful-Version", strconv.Itoa(r.version))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperr.UpstreamError{Op: r.op, Payload: map[string]any{}, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &apperr.UpstreamError{Op: r.op, Status: resp.StatusCode, Payload: map[string]any{}, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperr.UpstreamError{Op: r.op, Status: resp.StatusCode, Payload: parsePayload(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

// parsePayload decodes an error body. Anything that is not a JSON object
// yields an empty map.
func parsePayload(body []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}
