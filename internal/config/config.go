package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	APIURL         string
	Storage        string
	StoragePath    string
	Namespace      string
	RedisURL       string
	DatabaseURL    string
	SettleDelay    time.Duration
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	Port           string
	JWTSecret      string
	AllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Storage:        "file",
		Namespace:      "guestkit",
		SettleDelay:    500 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
		LogFormat:      "console",
		Port:           "8080", // default port
		JWTSecret:      "dev-secret",
	}

	// Load GUESTKIT_API_URL (optional here; commands that call the backend require it)
	if apiURL := strings.TrimSpace(os.Getenv("GUESTKIT_API_URL")); apiURL != "" {
		u, err := url.Parse(apiURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("GUESTKIT_API_URL must be an absolute http(s) URL, got %q", apiURL)
		}
		cfg.APIURL = strings.TrimRight(apiURL, "/")
	}

	// Load GUESTKIT_STORAGE (optional, defaults to file)
	if storage := os.Getenv("GUESTKIT_STORAGE"); storage != "" {
		cfg.Storage = strings.ToLower(strings.TrimSpace(storage))
	}
	switch cfg.Storage {
	case "memory", "file", "badger", "redis", "postgres":
	default:
		return nil, fmt.Errorf("GUESTKIT_STORAGE must be one of memory, file, badger, redis, postgres; got %q", cfg.Storage)
	}

	cfg.StoragePath = os.Getenv("GUESTKIT_STORAGE_PATH")
	if cfg.StoragePath == "" {
		cfg.StoragePath = defaultStoragePath(cfg.Storage)
	}

	if ns := os.Getenv("GUESTKIT_NAMESPACE"); ns != "" {
		cfg.Namespace = ns
	}

	// Load REDIS_URL / DATABASE_URL (required by their drivers)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.Storage == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL environment variable is required for redis storage")
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.Storage == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required for postgres storage")
	}

	var err error
	if cfg.SettleDelay, err = durationEnv("GUESTKIT_SETTLE_DELAY", cfg.SettleDelay); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationEnv("GUESTKIT_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	// Load PORT (optional, defaults to 8080)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Load JWT_SECRET (optional; only the dev API signs tokens)
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

// RequireAPIURL returns an error when no backend URL is configured
func (c *Config) RequireAPIURL() error {
	if c.APIURL == "" {
		return fmt.Errorf("GUESTKIT_API_URL environment variable is required")
	}
	return nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}

func defaultStoragePath(driver string) string {
	dir := ".guestkit"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".guestkit")
	}
	if driver == "badger" {
		return filepath.Join(dir, "badger")
	}
	return filepath.Join(dir, "storage.json")
}
