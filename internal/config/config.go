package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/goodiebox/boxsense/internal/errors"
)

// Config holds the full application configuration, constructed and validated
// once at startup before the server accepts requests.
type Config struct {
	XAI    XAIConfig
	Server ServerConfig
}

// XAIConfig holds settings for the upstream completion API
type XAIConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	RequestTimeout  time.Duration
	CacheTTL        time.Duration
	RateLimitPerMin int
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. A missing .env file is not an error; the process can run on
// environment variables alone.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			if !os.IsNotExist(err) {
				return nil, apperrors.NewConfigurationError("failed to load .env file", err)
			}
		}
	}

	cfg := &Config{
		XAI: XAIConfig{
			APIKey:  getEnv("XAI_API_KEY", ""),
			APIURL:  getEnv("XAI_API_URL", "https://api.x.ai/v1/completions"),
			Model:   getEnv("XAI_MODEL", "grok-3"),
			Timeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 3*time.Minute),
			CacheTTL:        getEnvAsDuration("CACHE_TTL", 15*time.Minute),
			RateLimitPerMin: getEnvAsInt("RATE_LIMIT_PER_MIN", 60),
		},
	}

	return cfg, nil
}

// Validate fails fast on configuration the service cannot run without
func (c *Config) Validate() error {
	if c.XAI.APIKey == "" {
		return apperrors.NewConfigurationError("XAI_API_KEY environment variable is not set", nil)
	}
	if c.XAI.APIURL == "" {
		return apperrors.NewConfigurationError("XAI_API_URL must not be empty", nil)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
