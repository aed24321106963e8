package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/DominiquePaul/thisiscrispin/internal/assets"
	"github.com/DominiquePaul/thisiscrispin/internal/auth"
	"github.com/DominiquePaul/thisiscrispin/internal/blog"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/feedback"
	"github.com/DominiquePaul/thisiscrispin/internal/ratelimit"
)

// Rate limit stores.
const (
	RateLimitStoreMemory   = "memory"
	RateLimitStorePostgres = "postgres"
)

func init() {
	// Report validation errors by their YAML key.
	validation.ErrorTag = "yaml"
}

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	CMS       CMSConfig         `yaml:"cms"`
	Admin     AdminConfig       `yaml:"admin"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	Assets    AssetsConfig      `yaml:"assets"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Export    ExportConfig      `yaml:"export"`
	Feedback  FeedbackConfig    `yaml:"feedback"`
}

// Validate validates the configuration. Admin secrets are checked separately
// by the server, so the offline commands run without them.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.CMS.Validate(); err != nil {
		return fmt.Errorf("cms: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Assets.Validate(); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Feedback.Validate(); err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// CMSConfig identifies the CMS space and carries its API tokens.
type CMSConfig struct {
	SpaceID         string        `yaml:"space_id"`
	Environment     string        `yaml:"environment"`
	ManagementToken string        `yaml:"management_token"`
	DeliveryToken   string        `yaml:"delivery_token"`
	Locale          string        `yaml:"locale"`
	ContentType     string        `yaml:"content_type"`
	ManagementURL   string        `yaml:"management_url"`
	UploadURL       string        `yaml:"upload_url"`
	DeliveryURL     string        `yaml:"delivery_url"`
	Timeout         time.Duration `yaml:"timeout"`
	SyncInterval    time.Duration `yaml:"sync_interval"`
}

// Validate validates the CMS configuration.
func (c *CMSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SpaceID, validation.Required),
		validation.Field(&c.Environment, validation.Required),
		validation.Field(&c.ManagementToken, validation.Required),
		validation.Field(&c.DeliveryToken, validation.Required),
		validation.Field(&c.Locale, validation.Required),
		validation.Field(&c.ContentType, validation.Required),
		validation.Field(&c.SyncInterval, validation.Min(time.Duration(0))),
	)
}

// Client returns the client configuration.
func (c *CMSConfig) Client() cms.Config {
	return cms.Config{
		SpaceID:         c.SpaceID,
		Environment:     c.Environment,
		ManagementToken: c.ManagementToken,
		DeliveryToken:   c.DeliveryToken,
		Locale:          c.Locale,
		ManagementURL:   c.ManagementURL,
		UploadURL:       c.UploadURL,
		DeliveryURL:     c.DeliveryURL,
		Timeout:         c.Timeout,
	}
}

// AdminConfig holds the admin password and session settings.
type AdminConfig struct {
	Password      string        `yaml:"password"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookie  bool          `yaml:"secure_cookie"`
}

// Validate validates the admin configuration.
func (c *AdminConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.SessionSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SessionTTL, validation.Min(time.Duration(0))),
	)
}

// Gate returns the password gate configuration.
func (c *AdminConfig) Gate() auth.Config {
	return auth.Config{
		Password:      c.Password,
		SessionSecret: c.SessionSecret,
		SessionTTL:    c.SessionTTL,
		SecureCookie:  c.SecureCookie,
	}
}

// RateLimitConfig holds the login lockout policy and where its state lives.
type RateLimitConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	LockDuration time.Duration `yaml:"lock_duration"`
	Store        string        `yaml:"store"`
	PostgresDSN  string        `yaml:"postgres_dsn"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	if c.Store == "" {
		c.Store = RateLimitStoreMemory
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Min(0)),
		validation.Field(&c.LockDuration, validation.Min(time.Duration(0))),
		validation.Field(&c.Store, validation.In(RateLimitStoreMemory, RateLimitStorePostgres)),
		validation.Field(&c.PostgresDSN, validation.When(c.Store == RateLimitStorePostgres, validation.Required)),
	)
}

// Policy returns the lockout policy.
func (c *RateLimitConfig) Policy() ratelimit.Policy {
	return ratelimit.Policy{MaxAttempts: c.MaxAttempts, LockDuration: c.LockDuration}
}

// AssetsConfig tunes the upload pipeline.
type AssetsConfig struct {
	LargeFileThreshold int           `yaml:"large_file_threshold"`
	MaxDimension       int           `yaml:"max_dimension"`
	MaxUploadBytes     int           `yaml:"max_upload_bytes"`
	PollAttempts       int           `yaml:"poll_attempts"`
	PollInitialDelay   time.Duration `yaml:"poll_initial_delay"`
	PollMaxDelay       time.Duration `yaml:"poll_max_delay"`
}

// Validate validates the assets configuration.
func (c *AssetsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LargeFileThreshold, validation.Min(0)),
		validation.Field(&c.MaxDimension, validation.Min(0)),
		validation.Field(&c.MaxUploadBytes, validation.Min(0)),
		validation.Field(&c.PollAttempts, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.PollMaxDelay > 0 && c.PollInitialDelay > c.PollMaxDelay {
		return errors.New("poll_initial_delay must not exceed poll_max_delay")
	}
	return nil
}

// Pipeline returns the pipeline configuration.
func (c *AssetsConfig) Pipeline() assets.Config {
	return assets.Config{
		LargeFileThreshold: c.LargeFileThreshold,
		MaxDimension:       c.MaxDimension,
		MaxUploadBytes:     c.MaxUploadBytes,
		PollAttempts:       c.PollAttempts,
		PollInitialDelay:   c.PollInitialDelay,
		PollMaxDelay:       c.PollMaxDelay,
	}
}

// SQLiteConfig holds the path of the local post index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ExportConfig holds the markdown export target.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// FeedbackConfig selects how reader feedback reaches the author. Resend wins
// when both transports are configured.
type FeedbackConfig struct {
	EmailTo      string        `yaml:"email_to"`
	FromEmail    string        `yaml:"from_email"`
	WebhookURL   string        `yaml:"webhook_url"`
	ResendAPIKey string        `yaml:"resend_api_key"`
	ResendURL    string        `yaml:"resend_url"`
	SMTP         SMTPConfig    `yaml:"smtp"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SMTPConfig addresses the feedback mail server.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Secure   bool   `yaml:"secure"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Enabled reports whether a mail transport is configured.
func (c *FeedbackConfig) Enabled() bool {
	return c.ResendAPIKey != "" || c.SMTP.Host != ""
}

// Validate validates the feedback configuration.
func (c *FeedbackConfig) Validate() error {
	smtpOnly := c.ResendAPIKey == "" && c.SMTP.Host != ""
	if err := validation.ValidateStruct(c,
		validation.Field(&c.EmailTo, validation.When(c.Enabled(), validation.Required), is.EmailFormat),
		validation.Field(&c.FromEmail, validation.When(smtpOnly, validation.Required), is.EmailFormat),
		validation.Field(&c.WebhookURL, is.URL),
		validation.Field(&c.ResendURL, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if err := c.SMTP.Validate(); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// Validate validates the SMTP configuration.
func (c *SMTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.User, validation.When(c.Host != "", validation.Required)),
		validation.Field(&c.Password, validation.When(c.Host != "", validation.Required)),
	)
}

// Mailer returns the configured transport, or nil when none is.
func (c *FeedbackConfig) Mailer() feedback.Mailer {
	switch {
	case c.ResendAPIKey != "":
		return feedback.NewResend(c.ResendAPIKey, c.ResendURL, &http.Client{Timeout: c.Timeout})
	case c.SMTP.Host != "":
		return feedback.NewSMTP(feedback.SMTPConfig{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Secure:   c.SMTP.Secure,
			Username: c.SMTP.User,
			Password: c.SMTP.Password,
			Timeout:  c.Timeout,
		})
	default:
		return nil
	}
}

// Service builds the feedback service.
func (c *FeedbackConfig) Service(opts ...feedback.Option) *feedback.Service {
	if c.WebhookURL != "" {
		opts = append(opts, feedback.WithNotifier(feedback.NewWebhook(c.WebhookURL, &http.Client{Timeout: c.Timeout})))
	}
	return feedback.New(feedback.Config{To: c.EmailTo, From: c.FromEmail}, c.Mailer(), opts...)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		CMS: CMSConfig{
			Environment:  "master",
			Locale:       "en-US",
			ContentType:  blog.DefaultContentType,
			Timeout:      30 * time.Second,
			SyncInterval: 5 * time.Minute,
		},
		Admin: AdminConfig{
			SessionTTL:   auth.DefaultSessionTTL,
			SecureCookie: true,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:  ratelimit.DefaultMaxAttempts,
			LockDuration: ratelimit.DefaultLockDuration,
			Store:        RateLimitStoreMemory,
		},
		Assets: AssetsConfig{
			LargeFileThreshold: assets.DefaultLargeFileThreshold,
			MaxDimension:       assets.DefaultMaxDimension,
			MaxUploadBytes:     assets.DefaultMaxUploadBytes,
			PollAttempts:       assets.DefaultPollAttempts,
			PollInitialDelay:   assets.DefaultPollInitialDelay,
			PollMaxDelay:       assets.DefaultPollMaxDelay,
		},
		SQLite: SQLiteConfig{
			Path: "./crispin.db",
		},
		Export: ExportConfig{
			Dir: "./export",
		},
		Feedback: FeedbackConfig{
			SMTP:    SMTPConfig{Port: 465, Secure: true},
			Timeout: feedback.DefaultTimeout,
		},
	}
}
