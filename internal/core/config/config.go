// Package config provides configuration management for browscap commands.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/browscap/internal/pattern"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
)

// Config is the full configuration of every command.
type Config struct {
	Store   StoreConfig
	Server  ServerConfig
	Matcher MatcherConfig
	Source  SourceConfig
}

// StoreConfig selects and tunes the shard store.
type StoreConfig struct {
	Backend     string
	Dir         string
	DatabaseURL string
	RedisURL    string
	RedisPrefix string
	RedisTTL    time.Duration
	Compress    bool
	CacheSize   int
}

// ServerConfig holds configuration for the lookup API.
type ServerConfig struct {
	Host           string
	GRPCPort       int
	HTTPPort       int
	RequestTimeout time.Duration
	ReloadInterval time.Duration
	RequireAuth    bool
}

// MatcherConfig tunes compilation and lookup.
type MatcherConfig struct {
	PrefixLength    int
	RegexpCacheSize int
}

// SourceConfig locates the definitions text for updates.
type SourceConfig struct {
	URL         string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     BackendFile,
			Dir:       "./data",
			CacheSize: 512,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			GRPCPort:       50051,
			HTTPPort:       8080,
			RequestTimeout: 5 * time.Second,
			ReloadInterval: time.Minute,
		},
		Matcher: MatcherConfig{
			PrefixLength:    pattern.DefaultPrefixLength,
			RegexpCacheSize: 4096,
		},
		Source: SourceConfig{
			URL: "https://browscap.org/stream?q=PHP_BrowsCapINI",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports BROWSCAP_HMAC_SECRET (single) and BROWSCAP_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(name, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s and %s_* for conflicts)", secretID, EnvPrefix+"_HMAC_SECRET", EnvPrefix+"_HMAC_SECRET")
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv(EnvPrefix + "_HMAC_SECRET"); val != "" {
		if err := add(EnvPrefix+"_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s_HMAC_SECRET_%d", EnvPrefix, i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecret decodes base64-encoded HMAC secret from environment variable.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}
