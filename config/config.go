package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/scottboms/musickit-gateway/domain"
)

// Config holds all configuration for the gateway.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type Config struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	// Apple developer credentials. PrivateKey is the inline PEM string;
	// PrivateKeyFile, when set, is read at load time and takes precedence.
	TeamID         string `mapstructure:"TEAM_ID"`
	KeyID          string `mapstructure:"KEY_ID"`
	PrivateKey     string `mapstructure:"PRIVATE_KEY"`
	PrivateKeyFile string `mapstructure:"PRIVATE_KEY_FILE"`

	// Storefront is either an explicit region code or "auto" to resolve it
	// through any available shared user token.
	Storefront string `mapstructure:"STOREFRONT"`

	DevTokenTTLSec       int    `mapstructure:"DEV_TOKEN_TTL_SEC"`
	TokenCacheTTLMinutes int    `mapstructure:"TOKEN_CACHE_TTL_MIN"`
	ResponseCacheTTLSec  int    `mapstructure:"RESPONSE_CACHE_TTL_SEC"`
	SongsLimit           int    `mapstructure:"SONGS_LIMIT"`
	AllowedOrigins       string `mapstructure:"ALLOWED_ORIGINS"` // comma-separated

	// StorageRoot is the directory the per-(domain,user) token files live in.
	StorageRoot string `mapstructure:"STORAGE_ROOT"`
	// BaseDomain is the fallback hostname when a request carries no Host.
	BaseDomain string `mapstructure:"BASE_DOMAIN"`

	// PrincipalSecret verifies the HS256 bearer the embedding CMS signs for
	// authenticated panel users.
	PrincipalSecret string `mapstructure:"PRINCIPAL_SECRET"`

	// RedisAddr switches the Tier1 cache from in-memory to Redis when set.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	APIBaseURL     string `mapstructure:"API_BASE_URL"`
	HTTPTimeoutSec int    `mapstructure:"HTTP_TIMEOUT_SEC"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/musickit-gateway/")
	v.AddConfigPath("$HOME/.musickit-gateway")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("TEAM_ID", "")
	v.SetDefault("KEY_ID", "")
	v.SetDefault("PRIVATE_KEY", "")
	v.SetDefault("PRIVATE_KEY_FILE", "")
	v.SetDefault("STOREFRONT", "auto")
	v.SetDefault("DEV_TOKEN_TTL_SEC", 3600)
	v.SetDefault("TOKEN_CACHE_TTL_MIN", 43200) // 30 days
	v.SetDefault("RESPONSE_CACHE_TTL_SEC", 120)
	v.SetDefault("SONGS_LIMIT", 15)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("STORAGE_ROOT", "./data/tokens")
	v.SetDefault("BASE_DOMAIN", "localhost")
	v.SetDefault("PRINCIPAL_SECRET", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("API_BASE_URL", "https://api.music.apple.com")
	v.SetDefault("HTTP_TIMEOUT_SEC", 10)

	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		// Other errors (e.g., permission issues, malformed config) should be returned.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// Credentials assembles the signing credentials, reading PrivateKeyFile
// when configured. Missing or unreadable material yields empty fields; the
// validator turns those into a structured status rather than a load error.
func (c *Config) Credentials() domain.Credentials {
	pem := c.PrivateKey
	if c.PrivateKeyFile != "" {
		if data, err := os.ReadFile(c.PrivateKeyFile); err == nil {
			pem = string(data)
		}
	}

	return domain.Credentials{
		TeamID:     c.TeamID,
		KeyID:      c.KeyID,
		PrivateKey: pem,
	}
}

// TokenCacheTTL is the cached-mirror lifetime for user tokens, floored at
// one minute.
func (c *Config) TokenCacheTTL() time.Duration {
	minutes := c.TokenCacheTTLMinutes
	if minutes < 1 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}

// HTTPTimeout bounds outbound catalog calls.
func (c *Config) HTTPTimeout() time.Duration {
	sec := c.HTTPTimeoutSec
	if sec <= 0 {
		sec = 10
	}
	return time.Duration(sec) * time.Second
}

// Origins returns the CORS allow-list for the dev-token endpoints.
func (c *Config) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}

	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
