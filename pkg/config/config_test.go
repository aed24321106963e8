package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_KeepsDefaultsAndExpands(t *testing.T) {
	t.Setenv("CFG_TEST_TOKEN", "secret")
	path := writeFile(t, "port: 80\ntoken: ${CFG_TEST_TOKEN}\n")

	s := sample{Name: "default"}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" || s.Port != 80 || s.Token != "secret" {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "port: 80\nprot: 81\n")
	if err := Load(path, &sample{}); err == nil {
		t.Fatal("unknown key should fail")
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	path := writeFile(t, "name: x\n")
	err := Load(path, &sample{})
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeFile(t, "")
	s := sample{Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Port != 8080 {
		t.Errorf("port = %d", s.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &sample{}); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("CFG_SET", "value")
	t.Setenv("CFG_EMPTY", "")
	tests := map[string]string{
		"${CFG_SET}":             "value",
		"$CFG_SET":               "value",
		"${CFG_UNSET_XYZ}":       "",
		"${CFG_UNSET_XYZ:-def}":  "def",
		"${CFG_EMPTY:-fallback}": "fallback",
		"${CFG_SET:-ignored}":    "value",
		"plain":                  "plain",
	}
	for in, want := range tests {
		if got := Expand(in); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
}
