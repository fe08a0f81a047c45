package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/marekbraun/golinks/internal/clientip"
)

type Config struct {
	Port               string
	DBPath             string
	BaseURL            string
	Env                string
	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GeoIPPath          string
	CacheSize          int
	DailyLinkLimit     int
	IPLookupURL        string
	IPLookupTimeout    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	jwtSecret := os.Getenv("GOLINKS_JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("GOLINKS_JWT_SECRET is required")
	}
	clientID := os.Getenv("GOLINKS_GOOGLE_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("GOLINKS_GOOGLE_CLIENT_ID is required")
	}
	clientSecret := os.Getenv("GOLINKS_GOOGLE_CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("GOLINKS_GOOGLE_CLIENT_SECRET is required")
	}

	baseURL := strings.TrimRight(envOrDefault("GOLINKS_BASE_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		Port:               envOrDefault("GOLINKS_PORT", "8080"),
		DBPath:             envOrDefault("GOLINKS_DB_PATH", "./golinks.db"),
		BaseURL:            baseURL,
		Env:                envOrDefault("GOLINKS_ENV", "development"),
		JWTSecret:          jwtSecret,
		GoogleClientID:     clientID,
		GoogleClientSecret: clientSecret,
		GoogleRedirectURL:  envOrDefault("GOLINKS_GOOGLE_REDIRECT_URL", baseURL+"/auth/google/callback"),
		GeoIPPath:          os.Getenv("GOLINKS_GEOIP_PATH"),
		CacheSize:          parseInt("GOLINKS_CACHE_SIZE", 10000),
		DailyLinkLimit:     parseInt("GOLINKS_DAILY_LINK_LIMIT", 100),
		IPLookupURL:        ipLookupURL(),
		IPLookupTimeout:    parseDuration("GOLINKS_IP_LOOKUP_TIMEOUT", 2*time.Second),
	}

	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("GOLINKS_CACHE_SIZE must be positive")
	}
	if cfg.DailyLinkLimit <= 0 {
		return nil, fmt.Errorf("GOLINKS_DAILY_LINK_LIMIT must be positive")
	}
	if cfg.IPLookupTimeout <= 0 {
		return nil, fmt.Errorf("GOLINKS_IP_LOOKUP_TIMEOUT must be positive")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ipLookupURL distinguishes "unset" from "set but empty": an empty value
// disables the external lookup entirely.
func ipLookupURL() string {
	v, ok := os.LookupEnv("GOLINKS_IP_LOOKUP_URL")
	if !ok {
		return clientip.DefaultLookupURL
	}
	return v
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
