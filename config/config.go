package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig
	Scraper ScraperConfig
	Output  OutputConfig
	Engine  EngineConfig
	Webhook WebhookConfig
	Log     LogConfig

	// TargetsFile is an optional YAML target list replacing the built-in one.
	TargetsFile string
}

// EngineConfig selects how pages are loaded.
type EngineConfig struct {
	// Name is "browser" (headless Chrome via Rod) or "http" (static fetch).
	Name string // default: "browser"

	// HTTPTimeout is the client-level deadline for the static engine.
	HTTPTimeout time.Duration // default: 30s
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// Proxy is the proxy URL for all page loads.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects anti-detection JS before every navigation.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types to block, e.g.
	// ["Image", "Stylesheet", "Font", "Media"]. Empty loads everything.
	BlockedResourceTypes []string
}

// ScraperConfig controls the per-target recipe timing.
type ScraperConfig struct {
	// NavigationTimeout bounds navigation plus the network-idle wait.
	NavigationTimeout time.Duration // default: 30s

	// SelectorTimeout bounds the wait for the main content landmark.
	SelectorTimeout time.Duration // default: 10s

	// Delay is the fixed pause after every target.
	Delay time.Duration // default: 2s

	// CaptureHTML keeps each landmark's HTML for the markdown digest.
	// Derived from Output.MarkdownPath; not read from the environment.
	CaptureHTML bool
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	// Path is the JSON snapshot location. Its directory must exist.
	Path string // default: "output/apple_articles_scraped.json"

	// MarkdownPath, when set, also writes a Markdown digest.
	MarkdownPath string
}

// WebhookConfig controls the completion notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:             envBoolOr("HARVEST_HEADLESS", true),
			Proxy:                os.Getenv("HARVEST_PROXY"),
			NoSandbox:            envBoolOr("HARVEST_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("HARVEST_BROWSER_BIN"),
			Stealth:              envBoolOr("HARVEST_STEALTH", false),
			BlockedResourceTypes: envSliceOr("HARVEST_BLOCKED_RESOURCES", nil),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("HARVEST_NAV_TIMEOUT", 30*time.Second),
			SelectorTimeout:   envDurationOr("HARVEST_SELECTOR_TIMEOUT", 10*time.Second),
			Delay:             envDurationOr("HARVEST_DELAY", 2*time.Second),
		},
		Output: OutputConfig{
			Path:         envOr("HARVEST_OUTPUT", "output/apple_articles_scraped.json"),
			MarkdownPath: os.Getenv("HARVEST_MARKDOWN_OUTPUT"),
		},
		Engine: EngineConfig{
			Name:        envOr("HARVEST_ENGINE", "browser"),
			HTTPTimeout: envDurationOr("HARVEST_HTTP_TIMEOUT", 30*time.Second),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("HARVEST_WEBHOOK_URL"),
			Secret: os.Getenv("HARVEST_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("HARVEST_LOG_LEVEL", "info"),
			Format: envOr("HARVEST_LOG_FORMAT", "text"),
		},
		TargetsFile: os.Getenv("HARVEST_TARGETS_FILE"),
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
