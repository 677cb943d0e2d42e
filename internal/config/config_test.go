package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
client:
  server_url: "http://registry.example.com"
  request_timeout: "5s"

server:
  host: "127.0.0.1"
  port: 9090
  db_path: "test.db"
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"
  session_ttl: "1h"

log:
  level: "debug"
  format: "text"
`

func TestLoad_FromYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Client.ServerURL != "http://registry.example.com" {
		t.Errorf("Client.ServerURL = %q", cfg.Client.ServerURL)
	}
	if cfg.Client.RequestTimeout != 5*time.Second {
		t.Errorf("Client.RequestTimeout = %v", cfg.Client.RequestTimeout)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("HRDS_SERVER_URL", "http://localhost:9999")

	// Run from a directory with no config.yaml.
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.ServerURL != "http://localhost:9999" {
		t.Errorf("Client.ServerURL = %q", cfg.Client.ServerURL)
	}
	// Defaults still apply for everything untouched.
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port default = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level default = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidateClient(t *testing.T) {
	cfg := &Config{Client: ClientConfig{ServerURL: "http://localhost:3000", RequestTimeout: time.Second}}
	if err := cfg.ValidateClient(); err != nil {
		t.Fatalf("ValidateClient: %v", err)
	}

	cfg.Client.ServerURL = "not a url"
	if err := cfg.ValidateClient(); err == nil || !strings.Contains(err.Error(), "server_url") {
		t.Errorf("expected server_url error, got %v", err)
	}
}

func TestValidateServer(t *testing.T) {
	cfg := &Config{Server: ServerConfig{
		Port:       3000,
		DBPath:     "x.db",
		JWTSecret:  "this-is-a-very-long-jwt-secret-for-testing-32+",
		SessionTTL: time.Hour,
	}}
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("ValidateServer: %v", err)
	}

	cfg.Server.JWTSecret = "short"
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("expected jwt_secret error, got %v", err)
	}
}
