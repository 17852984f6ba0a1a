package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. BROWSCAP_STORE_BACKEND.
const EnvPrefix = "BROWSCAP"

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on the returned value.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Store: StoreConfig{
			Backend:     strings.ToLower(v.GetString("store.backend")),
			Dir:         v.GetString("store.dir"),
			DatabaseURL: v.GetString("store.db_url"),
			RedisURL:    v.GetString("store.redis_url"),
			RedisPrefix: v.GetString("store.redis_prefix"),
			RedisTTL:    v.GetDuration("store.redis_ttl"),
			Compress:    v.GetBool("store.compress"),
			CacheSize:   v.GetInt("store.cache_size"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			GRPCPort:       v.GetInt("server.grpc_port"),
			HTTPPort:       v.GetInt("server.http_port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			ReloadInterval: v.GetDuration("server.reload_interval"),
			RequireAuth:    v.GetBool("server.require_auth"),
		},
		Matcher: MatcherConfig{
			PrefixLength:    v.GetInt("matcher.prefix_length"),
			RegexpCacheSize: v.GetInt("matcher.regexp_cache_size"),
		},
		Source: SourceConfig{
			URL:         v.GetString("source.url"),
			S3Region:    v.GetString("source.s3_region"),
			S3Endpoint:  v.GetString("source.s3_endpoint"),
			S3PathStyle: v.GetBool("source.s3_path_style"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.db_url", d.Store.DatabaseURL)
	v.SetDefault("store.redis_url", d.Store.RedisURL)
	v.SetDefault("store.redis_prefix", d.Store.RedisPrefix)
	v.SetDefault("store.redis_ttl", d.Store.RedisTTL.String())
	v.SetDefault("store.compress", d.Store.Compress)
	v.SetDefault("store.cache_size", d.Store.CacheSize)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.reload_interval", d.Server.ReloadInterval.String())
	v.SetDefault("server.require_auth", d.Server.RequireAuth)

	v.SetDefault("matcher.prefix_length", d.Matcher.PrefixLength)
	v.SetDefault("matcher.regexp_cache_size", d.Matcher.RegexpCacheSize)

	v.SetDefault("source.url", d.Source.URL)
	v.SetDefault("source.s3_region", d.Source.S3Region)
	v.SetDefault("source.s3_endpoint", d.Source.S3Endpoint)
	v.SetDefault("source.s3_path_style", d.Source.S3PathStyle)
}

// Validate checks backend settings, port ranges and positive limits.
func Validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.Store.Dir == "" {
			return fmt.Errorf("store.dir required for the file backend")
		}
	case BackendSQL:
		if cfg.Store.DatabaseURL == "" {
			return fmt.Errorf("store.db_url required for the sql backend")
		}
	case BackendRedis:
		if cfg.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (memory, file, sql, redis)", cfg.Store.Backend)
	}
	if cfg.Store.CacheSize < 0 {
		return fmt.Errorf("store.cache_size must not be negative, got %d", cfg.Store.CacheSize)
	}
	if cfg.Store.RedisTTL < 0 {
		return fmt.Errorf("store.redis_ttl must not be negative, got %v", cfg.Store.RedisTTL)
	}

	for name, port := range map[string]int{"grpc_port": cfg.Server.GRPCPort, "http_port": cfg.Server.HTTPPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.ReloadInterval < 0 {
		return fmt.Errorf("reload_interval must not be negative, got %v", cfg.Server.ReloadInterval)
	}

	if cfg.Matcher.PrefixLength <= 0 {
		return fmt.Errorf("prefix_length must be positive, got %d", cfg.Matcher.PrefixLength)
	}
	if cfg.Matcher.RegexpCacheSize < 0 {
		return fmt.Errorf("regexp_cache_size must not be negative, got %d", cfg.Matcher.RegexpCacheSize)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use %s_HMAC_SECRET environment variable)", EnvPrefix)
	}
	return nil
}
