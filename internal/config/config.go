package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all agent configuration
type Config struct {
	// Control API settings
	Host string
	Port string

	// Database settings
	DatabasePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Status board settings
	CacheSize int
	CacheTTL  time.Duration

	// Portal settings
	PortalBaseURL    string
	PortalCasesPath  string
	PortalDetailPath string
	PortalCSRFCookie string

	// Backend settings
	BackendURL      string
	BackendWSURL    string
	BackendUsername string
	BackendPassword string
	BackendTimeout  time.Duration

	// Browser settings
	HeadlessMode       bool
	UserAgent          string
	BrowserPath        string
	BrowserControlURL  string
	BrowserProfileDir  string
	NavigationInterval time.Duration

	// Pipeline settings
	ContentWaitTimeout  time.Duration
	ContentPollInterval time.Duration
	AutoSync            bool
	AutoSyncAttempts    int
	AutoSyncInterval    time.Duration
	AutoSyncHeadStart   time.Duration
	DefaultPartyRole    string

	// Enrichment settings
	EnrichEnabled     bool
	EnrichPageSize    int
	EnrichMaxPages    int
	DetailTimeout     time.Duration
	DetailConcurrency int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:              getEnv("HOST", "127.0.0.1"),
		Port:              getEnv("PORT", "8765"),
		DatabasePath:      getEnv("DATABASE_PATH", "./data/lawmate_agent.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		PortalBaseURL:     strings.TrimRight(getEnv("PORTAL_BASE_URL", "https://efiling.highcourt.kerala.gov.in"), "/"),
		PortalCasesPath:   getEnv("PORTAL_CASES_PATH", "/mycases"),
		PortalDetailPath:  getEnv("PORTAL_DETAIL_PATH", "/Mycases/get_case_details"),
		PortalCSRFCookie:  getEnv("PORTAL_CSRF_COOKIE", "csrf_cookie_name"),
		BackendURL:        strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
		BackendWSURL:      getEnv("BACKEND_WS_URL", ""),
		BackendUsername:   getEnv("BACKEND_USERNAME", ""),
		BackendPassword:   getEnv("BACKEND_PASSWORD", ""),
		UserAgent:         getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		BrowserPath:       getEnv("ROD_BROWSER_PATH", ""),
		BrowserControlURL: getEnv("ROD_CONTROL_URL", ""),
		BrowserProfileDir: getEnv("BROWSER_PROFILE_DIR", "./data/browser-profile"),
		DefaultPartyRole:  strings.ToLower(getEnv("DEFAULT_PARTY_ROLE", "petitioner")),
	}

	if cfg.DefaultPartyRole != "petitioner" && cfg.DefaultPartyRole != "respondent" {
		return nil, fmt.Errorf("invalid DEFAULT_PARTY_ROLE: %q", cfg.DefaultPartyRole)
	}

	var err error
	cfg.CacheSize, err = strconv.Atoi(getEnv("CACHE_SIZE", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Minute

	if cfg.BackendTimeout, err = getSeconds("BACKEND_TIMEOUT", "60"); err != nil {
		return nil, err
	}
	if cfg.ContentWaitTimeout, err = getSeconds("CONTENT_WAIT_TIMEOUT", "25"); err != nil {
		return nil, err
	}
	if cfg.DetailTimeout, err = getSeconds("DETAIL_TIMEOUT", "15"); err != nil {
		return nil, err
	}
	if cfg.AutoSyncInterval, err = getSeconds("AUTO_SYNC_INTERVAL", "5"); err != nil {
		return nil, err
	}
	if cfg.AutoSyncHeadStart, err = getSeconds("AUTO_SYNC_HEAD_START", "2"); err != nil {
		return nil, err
	}

	pollMs, err := strconv.Atoi(getEnv("CONTENT_POLL_INTERVAL", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONTENT_POLL_INTERVAL: %w", err)
	}
	cfg.ContentPollInterval = time.Duration(pollMs) * time.Millisecond

	navMs, err := strconv.Atoi(getEnv("NAVIGATION_POLL_INTERVAL", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid NAVIGATION_POLL_INTERVAL: %w", err)
	}
	cfg.NavigationInterval = time.Duration(navMs) * time.Millisecond

	cfg.HeadlessMode = getEnv("HEADLESS_MODE", "false") == "true"
	cfg.AutoSync = getEnv("AUTO_SYNC", "false") == "true"
	cfg.EnrichEnabled = getEnv("ENRICH_ENABLED", "true") == "true"

	cfg.AutoSyncAttempts, err = strconv.Atoi(getEnv("AUTO_SYNC_ATTEMPTS", "6"))
	if err != nil || cfg.AutoSyncAttempts < 1 {
		return nil, fmt.Errorf("invalid AUTO_SYNC_ATTEMPTS: %q", getEnv("AUTO_SYNC_ATTEMPTS", "6"))
	}

	cfg.EnrichPageSize, err = strconv.Atoi(getEnv("ENRICH_PAGE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENRICH_PAGE_SIZE: %w", err)
	}

	cfg.EnrichMaxPages, err = strconv.Atoi(getEnv("ENRICH_MAX_PAGES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENRICH_MAX_PAGES: %w", err)
	}

	cfg.DetailConcurrency, err = strconv.Atoi(getEnv("DETAIL_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid DETAIL_CONCURRENCY: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getSeconds(key, defaultValue string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}
