package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/DominiquePaul/thisiscrispin/pkg/config"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.CMS.SpaceID = "space"
	cfg.CMS.ManagementToken = "cma"
	cfg.CMS.DeliveryToken = "cda"
	return cfg
}

func TestDefaultConfig_NeedsCMSCredentials(t *testing.T) {
	err := NewDefaultConfig().Validate()
	if err == nil {
		t.Fatal("default config without credentials should fail")
	}
	if !strings.Contains(err.Error(), "space_id") {
		t.Errorf("error should name the missing field: %v", err)
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}

func TestAdminConfig(t *testing.T) {
	cfg := AdminConfig{}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "password") {
		t.Errorf("missing password error = %v", err)
	}
	cfg = AdminConfig{Password: "pw", SessionSecret: "short"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "session_secret") {
		t.Errorf("short secret error = %v", err)
	}
	cfg = AdminConfig{Password: "pw", SessionSecret: strings.Repeat("s", 32), SessionTTL: time.Hour}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid admin config: %v", err)
	}
	if g := cfg.Gate(); g.Password != "pw" || g.SessionTTL != time.Hour {
		t.Errorf("gate config = %+v", g)
	}
}

func TestRateLimitConfig(t *testing.T) {
	cfg := RateLimitConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty store should default to memory: %v", err)
	}
	if cfg.Store != RateLimitStoreMemory {
		t.Errorf("store = %q", cfg.Store)
	}

	cfg = RateLimitConfig{Store: RateLimitStorePostgres}
	if err := cfg.Validate(); err == nil {
		t.Error("postgres store without dsn should fail")
	}
	cfg.PostgresDSN = "postgres://localhost/crispin"
	if err := cfg.Validate(); err != nil {
		t.Errorf("postgres with dsn: %v", err)
	}

	cfg = RateLimitConfig{Store: "redis"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown store should fail")
	}
}

func TestAssetsConfig_PollDelays(t *testing.T) {
	cfg := AssetsConfig{PollInitialDelay: 5 * time.Second, PollMaxDelay: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("initial delay above max should fail")
	}
	cfg.PollMaxDelay = 10 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid delays: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("CRISPIN_TEST_TOKEN", "from-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
cms:
  space_id: abc
  management_token: ${CRISPIN_TEST_TOKEN}
  delivery_token: cda
  sync_interval: 1m
rate_limit:
  max_attempts: 3
  lock_duration: 45s
assets:
  poll_attempts: 7
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.CMS.ManagementToken != "from-env" || cfg.CMS.SyncInterval != time.Minute {
		t.Errorf("cms = %+v", cfg.CMS)
	}
	if cfg.CMS.Locale != "en-US" || cfg.CMS.ContentType != "markdownrtc" {
		t.Errorf("defaults lost: %+v", cfg.CMS)
	}
	if p := cfg.RateLimit.Policy(); p.MaxAttempts != 3 || p.LockDuration != 45*time.Second {
		t.Errorf("policy = %+v", p)
	}
	if pc := cfg.Assets.Pipeline(); pc.PollAttempts != 7 || pc.MaxDimension != 2000 {
		t.Errorf("pipeline = %+v", pc)
	}
}

func TestFeedbackConfig(t *testing.T) {
	cfg := NewDefaultConfig().Feedback
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unconfigured feedback should be valid: %v", err)
	}
	if cfg.Enabled() || cfg.Mailer() != nil {
		t.Error("no transport should be configured by default")
	}

	cfg.SMTP.Host = "smtp.example.com"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("smtp without addresses and credentials should fail")
	}
	for _, field := range []string{"email_to", "from_email"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should name %s: %v", field, err)
		}
	}

	cfg.EmailTo = "me@example.com"
	cfg.FromEmail = "blog@example.com"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "user") {
		t.Errorf("missing smtp user error = %v", err)
	}
	cfg.SMTP.User, cfg.SMTP.Password = "u", "p"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid smtp config: %v", err)
	}
	if m := cfg.Mailer(); m == nil || m.Transport() != "smtp" {
		t.Errorf("mailer = %v", m)
	}

	cfg.ResendAPIKey = "re_key"
	cfg.FromEmail = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("resend needs no from address: %v", err)
	}
	if m := cfg.Mailer(); m.Transport() != "resend" {
		t.Errorf("resend should win, got %s", m.Transport())
	}

	cfg.EmailTo = "not-an-address"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "email_to") {
		t.Errorf("bad address error = %v", err)
	}
}
