// Package config loads the search server configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	GitHub  GitHubConfig
	Search  SearchConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	GinMode      string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GitHubConfig holds remote API configuration
type GitHubConfig struct {
	Token          string
	APIURL         string
	UserAgent      string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// SearchConfig holds aggregation engine limits
type SearchConfig struct {
	Ceiling     int
	MaxPages    int
	PageTimeout time.Duration
}

// RedisConfig holds the optional rate limit store
type RedisConfig struct {
	// URL is a redis:// URL or host:port. Empty disables rate limit sharing.
	URL string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("HOST", "0.0.0.0"),
			Port:         getEnv("PORT", "8080"),
			GinMode:      getEnv("GIN_MODE", "release"),
			CORSOrigins:  getEnvAsSlice("CORS_ORIGINS", ",", []string{"*"}),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
		},
		GitHub: GitHubConfig{
			Token:          getEnv("GITHUB_TOKEN", ""),
			APIURL:         getEnv("GITHUB_API_URL", ""),
			UserAgent:      getEnv("USER_AGENT", "topic-repo-search/0.1.0"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
			RetryAttempts:  getEnvAsInt("RETRY_ATTEMPTS", 3),
			RetryDelay:     getEnvAsDuration("RETRY_DELAY", 2*time.Second),
		},
		Search: SearchConfig{
			Ceiling:     getEnvAsInt("SEARCH_CEILING", 500),
			MaxPages:    getEnvAsInt("SEARCH_MAX_PAGES", 5),
			PageTimeout: getEnvAsDuration("SEARCH_PAGE_TIMEOUT", 45*time.Second),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Server.Port)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.Server.GinMode)
	}
	if c.GitHub.UserAgent == "" {
		return fmt.Errorf("USER_AGENT is required")
	}
	if c.GitHub.APIURL != "" {
		u, err := url.Parse(c.GitHub.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("GITHUB_API_URL must be an absolute URL, got %q", c.GitHub.APIURL)
		}
	}
	if c.GitHub.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.GitHub.RetryAttempts < 1 || c.GitHub.RetryAttempts > 10 {
		return fmt.Errorf("RETRY_ATTEMPTS must be between 1 and 10, got %d", c.GitHub.RetryAttempts)
	}
	if c.GitHub.RetryDelay < 0 {
		return fmt.Errorf("RETRY_DELAY must not be negative")
	}
	if c.Search.Ceiling < 1 || c.Search.Ceiling > 1000 {
		// GitHub never returns more than 1000 search results
		return fmt.Errorf("SEARCH_CEILING must be between 1 and 1000, got %d", c.Search.Ceiling)
	}
	if c.Search.MaxPages < 1 || c.Search.MaxPages > 10 {
		return fmt.Errorf("SEARCH_MAX_PAGES must be between 1 and 10, got %d", c.Search.MaxPages)
	}
	return nil
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getEnvAsBool gets an environment variable as boolean with a fallback value
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("2s") or plain seconds ("2").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// getEnvAsSlice gets an environment variable as slice with a fallback value
func getEnvAsSlice(key, separator string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, separator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
