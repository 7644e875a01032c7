package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults mirror the refresh cadence of the dashboard hooks.
const (
	DefaultAPIURL           = "http://localhost:3000"
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultDNSCacheTTL      = 5 * time.Minute
	DefaultInventoryRefresh = 10 * time.Second
	DefaultStatusRefresh    = 30 * time.Second
	DefaultArgoCDRefresh    = 60 * time.Second
	DefaultDedupeInterval   = 5 * time.Second
	DefaultSyncMessageTTL   = 3 * time.Second
	DefaultCacheRetention   = time.Minute
	DefaultListenAddr       = "127.0.0.1:7660"
	DefaultMetricsAddr      = "127.0.0.1:9095"
	DefaultEnvFile          = ".env"
)

// Config holds all runtime configuration for the mission-control client.
type Config struct {
	EnvFile string

	// Backend API
	APIURL             string
	APIToken           string
	AccessClientID     string // Cloudflare Access service token id
	AccessClientSecret string // Cloudflare Access service token secret
	HTTPTimeout        time.Duration
	DNSCacheTTL        time.Duration // 0 disables the DNS cache

	// Polling
	InventoryRefresh time.Duration
	StatusRefresh    time.Duration
	ArgoCDRefresh    time.Duration
	DedupeInterval   time.Duration
	SyncMessageTTL   time.Duration
	CacheRetention   time.Duration // how long unsubscribed cache entries are kept

	// Local servers
	ListenAddr  string
	MetricsAddr string // empty disables the metrics endpoint

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. The env file (MC_ENV_FILE,
// default .env) is loaded if present but not required; variables already set
// in the process environment win.
func Load() (*Config, error) {
	envFile := envOrDefault("MC_ENV_FILE", DefaultEnvFile)
	// Best-effort .env loading (not required)
	_ = godotenv.Load(envFile)

	return fromEnv(envFile)
}

func fromEnv(envFile string) (*Config, error) {
	cfg := &Config{
		EnvFile:            envFile,
		APIURL:             strings.TrimRight(envOrDefault("MC_API_URL", DefaultAPIURL), "/"),
		APIToken:           strings.TrimSpace(os.Getenv("MC_API_TOKEN")),
		AccessClientID:     strings.TrimSpace(os.Getenv("MC_CF_CLIENT_ID")),
		AccessClientSecret: strings.TrimSpace(os.Getenv("MC_CF_CLIENT_SECRET")),
		ListenAddr:         envOrDefault("MC_LISTEN_ADDR", DefaultListenAddr),
		MetricsAddr:        DefaultMetricsAddr,
		LogLevel:           envOrDefault("MC_LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("MC_LOG_FORMAT", "auto"),
	}
	if v, ok := os.LookupEnv("MC_METRICS_ADDR"); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"MC_HTTP_TIMEOUT", DefaultHTTPTimeout, &cfg.HTTPTimeout},
		{"MC_DNS_CACHE_TTL", DefaultDNSCacheTTL, &cfg.DNSCacheTTL},
		{"MC_INVENTORY_REFRESH", DefaultInventoryRefresh, &cfg.InventoryRefresh},
		{"MC_STATUS_REFRESH", DefaultStatusRefresh, &cfg.StatusRefresh},
		{"MC_ARGOCD_REFRESH", DefaultArgoCDRefresh, &cfg.ArgoCDRefresh},
		{"MC_DEDUPE_INTERVAL", DefaultDedupeInterval, &cfg.DedupeInterval},
		{"MC_SYNC_MESSAGE_TTL", DefaultSyncMessageTTL, &cfg.SyncMessageTTL},
		{"MC_CACHE_IDLE_RETENTION", DefaultCacheRetention, &cfg.CacheRetention},
	}
	for _, d := range durations {
		v, err := envOrDefaultDuration(d.key, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the values Load cannot recover from.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("MC_API_URL must be a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("MC_API_URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("MC_API_URL must include a host")
	}

	positive := map[string]time.Duration{
		"MC_HTTP_TIMEOUT":      c.HTTPTimeout,
		"MC_INVENTORY_REFRESH": c.InventoryRefresh,
		"MC_STATUS_REFRESH":    c.StatusRefresh,
		"MC_ARGOCD_REFRESH":    c.ArgoCDRefresh,
		"MC_SYNC_MESSAGE_TTL":  c.SyncMessageTTL,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be greater than 0, got %s", key, value)
		}
	}
	if c.DedupeInterval < 0 {
		return fmt.Errorf("MC_DEDUPE_INTERVAL must not be negative, got %s", c.DedupeInterval)
	}
	if c.CacheRetention < 0 {
		return fmt.Errorf("MC_CACHE_IDLE_RETENTION must not be negative, got %s", c.CacheRetention)
	}
	if c.DNSCacheTTL < 0 {
		return fmt.Errorf("MC_DNS_CACHE_TTL must not be negative, got %s", c.DNSCacheTTL)
	}
	if (c.AccessClientID == "") != (c.AccessClientSecret == "") {
		return fmt.Errorf("MC_CF_CLIENT_ID and MC_CF_CLIENT_SECRET must be set together")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("MC_LISTEN_ADDR must not be empty")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}
