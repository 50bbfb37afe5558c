package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.JWTSecret) != 32 {
		t.Errorf("jwt secret is %d bytes", len(cfg.JWTSecret))
	}
	if time.Duration(cfg.SessionTTL) != 24*time.Hour || !cfg.AllowRegistration {
		t.Errorf("cfg = %+v", cfg)
	}
	fi, err := os.Stat(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", fi.Mode().Perm())
	}

	// Loading again keeps the generated secret.
	again, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if string(again.JWTSecret) != string(cfg.JWTSecret) {
		t.Error("secret regenerated")
	}
}

func TestLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	content := `{"session_ttl": "2h", "allow_registration": false, "rate_limits": {"auth_rate_per_min": 10}}`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if time.Duration(cfg.SessionTTL) != 2*time.Hour {
		t.Errorf("session_ttl = %v", time.Duration(cfg.SessionTTL))
	}
	if cfg.AllowRegistration {
		t.Error("allow_registration not honored")
	}
	// Fields missing from the file keep their defaults.
	if cfg.RateLimits.AuthRatePerMin != 10 || cfg.RateLimits.WriteRatePerMin != 120 {
		t.Errorf("rate_limits = %+v", cfg.RateLimits)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Errorf("max_upload_bytes = %d", cfg.MaxUploadBytes)
	}

	// The secret was generated and persisted.
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["jwt_secret"] == "" || raw["session_ttl"] != "2h0m0s" {
		t.Errorf("saved = %s", data)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, content, want string
	}{
		{"syntax", `{`, "failed to parse"},
		{"duration", `{"session_ttl": "forever"}`, "failed to parse"},
		{"short ttl", `{"session_ttl": "1s"}`, "session_ttl"},
		{"negative rate", `{"rate_limits": {"auth_rate_per_min": -1}}`, "auth_rate_per_min"},
		{"upload", `{"max_upload_bytes": 0}`, "max_upload_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestStorageOptions(t *testing.T) {
	cfg := Default()
	cfg.LockTimeout = Duration(time.Second)
	opts := cfg.StorageOptions()
	if opts.LockTimeout != time.Second || opts.MaxAvatarBytes != 2<<20 {
		t.Errorf("opts = %+v", opts)
	}
}

func TestSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.FetchTitles = !cfg.FetchTitles
	if err := cfg.Save(dir); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, the secret must not be world readable", fi.Mode().Perm())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("unexpected files: %v", entries)
	}
	again, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if again.FetchTitles != cfg.FetchTitles || string(again.JWTSecret) != string(cfg.JWTSecret) {
		t.Errorf("reloaded = %+v", again)
	}
}
