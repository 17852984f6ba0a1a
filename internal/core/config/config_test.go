package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"

func TestHMACSecrets(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		t.Setenv("BROWSCAP_HMAC_SECRET", "")
		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 0 {
			t.Errorf("expected no secrets, got %d", len(secrets))
		}
	})

	t.Run("single secret", func(t *testing.T) {
		t.Setenv("BROWSCAP_HMAC_SECRET", testSecret)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		t.Setenv("BROWSCAP_HMAC_SECRET_1", testSecret)
		t.Setenv("BROWSCAP_HMAC_SECRET_2", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Setenv("BROWSCAP_HMAC_SECRET", "invalid_format")
		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		t.Setenv("BROWSCAP_HMAC_SECRET", testSecret)
		t.Setenv("BROWSCAP_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")

		_, err := HMACSecrets()
		if err == nil || !strings.Contains(err.Error(), "duplicate secret_id") {
			t.Errorf("expected duplicate secret_id error, got %v", err)
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid format", testSecret, false},
		{"missing colon", "0123456789abcdef0123456789abcdef", true},
		{"invalid secret_id length", "tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w", true},
		{"non-hex chars in secret_id", "0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w", true},
		{"invalid base64", "0123456789abcdef0123456789abcdef:not-valid-base64!!!", true},
		{"secret too short", "0123456789abcdef0123456789abcdef:c2hvcnQ=", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, secret, err := ParseHMACSecretWithID(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHMACSecretWithID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (id == "" || len(secret) < 32) {
				t.Errorf("ParseHMACSecretWithID() = %q, %d bytes", id, len(secret))
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Store.Backend != BackendFile {
			t.Errorf("expected backend file, got %s", cfg.Store.Backend)
		}
		if cfg.Store.Dir != "./data" {
			t.Errorf("expected dir ./data, got %s", cfg.Store.Dir)
		}
		if cfg.Server.GRPCPort != 50051 {
			t.Errorf("expected grpc port 50051, got %d", cfg.Server.GRPCPort)
		}
		if cfg.Server.HTTPPort != 8080 {
			t.Errorf("expected http port 8080, got %d", cfg.Server.HTTPPort)
		}
		if cfg.Server.RequestTimeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", cfg.Server.RequestTimeout)
		}
		if cfg.Server.ReloadInterval != time.Minute {
			t.Errorf("expected reload interval 1m, got %v", cfg.Server.ReloadInterval)
		}
		if cfg.Matcher.PrefixLength != 32 {
			t.Errorf("expected prefix length 32, got %d", cfg.Matcher.PrefixLength)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("BROWSCAP_STORE_BACKEND", "SQL")
		t.Setenv("BROWSCAP_STORE_DB_URL", "sqlite:///tmp/browscap.db")
		t.Setenv("BROWSCAP_SERVER_HTTP_PORT", "9999")
		t.Setenv("BROWSCAP_STORE_COMPRESS", "true")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Store.Backend != BackendSQL {
			t.Errorf("expected backend sql, got %s", cfg.Store.Backend)
		}
		if cfg.Store.DatabaseURL != "sqlite:///tmp/browscap.db" {
			t.Errorf("unexpected db url %s", cfg.Store.DatabaseURL)
		}
		if cfg.Server.HTTPPort != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.HTTPPort)
		}
		if !cfg.Store.Compress {
			t.Error("expected compress true")
		}
	})

	t.Run("environment beats config file", func(t *testing.T) {
		path := writeConfig(t, "server:\n  grpc_port: 9090\n  http_port: 9091\n")
		t.Setenv("BROWSCAP_SERVER_GRPC_PORT", "8081")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.GRPCPort != 8081 {
			t.Errorf("expected env port 8081, got %d", cfg.Server.GRPCPort)
		}
		if cfg.Server.HTTPPort != 9091 {
			t.Errorf("expected file port 9091, got %d", cfg.Server.HTTPPort)
		}
	})

	t.Run("secret in config file rejected", func(t *testing.T) {
		path := writeConfig(t, "server:\n  hmac_secret: \"should_be_rejected\"\n")
		_, err := LoadConfig(path)
		if err == nil || !strings.Contains(err.Error(), "HMAC secrets not allowed") {
			t.Fatalf("expected secret rejection, got %v", err)
		}
	})

	t.Run("secret in environment accepted", func(t *testing.T) {
		t.Setenv("BROWSCAP_HMAC_SECRET", testSecret)
		if _, err := LoadConfig(""); err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "s3" }, "unknown store backend"},
		{"sql without url", func(c *Config) { c.Store.Backend = BackendSQL }, "store.db_url"},
		{"redis without url", func(c *Config) { c.Store.Backend = BackendRedis }, "store.redis_url"},
		{"file without dir", func(c *Config) { c.Store.Dir = "" }, "store.dir"},
		{"port range", func(c *Config) { c.Server.GRPCPort = 70000 }, "grpc_port"},
		{"zero timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "request_timeout"},
		{"negative cache", func(c *Config) { c.Store.CacheSize = -1 }, "cache_size"},
		{"zero prefix length", func(c *Config) { c.Matcher.PrefixLength = 0 }, "prefix_length"},
	}

	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("Validate(DefaultConfig()) = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BROWSCAP_SERVER_HOST=127.0.0.1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BROWSCAP_SERVER_HOST", "")
	os.Unsetenv("BROWSCAP_SERVER_HOST")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host from env file, got %s", cfg.Server.Host)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
