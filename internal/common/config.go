package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Site    SiteConfig    `toml:"site"`
	Session SessionConfig `toml:"session"`
	Targets TargetsConfig `toml:"targets"`
	Output  OutputConfig  `toml:"output"`
	Browser BrowserConfig `toml:"browser"`
	Render  RenderConfig  `toml:"render"`
	Crawler CrawlerConfig `toml:"crawler"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// SiteConfig identifies the paywalled site the session belongs to
type SiteConfig struct {
	Name     string `toml:"name"`      // Site identity used to key stored sessions (defaults to the login URL host)
	LoginURL string `toml:"login_url"` // Page opened by `folio login`
}

// SessionConfig selects where the captured session is persisted
type SessionConfig struct {
	Backend string `toml:"backend"` // "file" or "badger"
	Path    string `toml:"path"`    // Session artifact path for the file backend
}

type TargetsConfig struct {
	Path string `toml:"path"` // JSON or YAML list of {"url": ...} objects
}

// OutputConfig controls artifact naming
type OutputConfig struct {
	Dir       string `toml:"dir"`
	Prefix    string `toml:"prefix"`    // e.g. "article_"
	Extension string `toml:"extension"` // e.g. ".html"
	Width     int    `toml:"width"`     // Zero-padded width of the index
}

// BrowserConfig contains chromedp allocator settings
type BrowserConfig struct {
	Headless   bool   `toml:"headless"`
	UserAgent  string `toml:"user_agent"`
	NoSandbox  bool   `toml:"no_sandbox"`
	DisableGPU bool   `toml:"disable_gpu"`
	ExecPath   string `toml:"exec_path"` // Optional Chrome binary, empty = chromedp discovery
	Isolation  string `toml:"isolation"` // "shared", "reset" or "fresh"
}

// RenderConfig contains the navigation and settle policy
type RenderConfig struct {
	Timeout         Duration `toml:"timeout"`          // Navigation deadline per target (default: 120s)
	SettleMode      string   `toml:"settle_mode"`      // "fixed" or "selector"
	SettleDelay     Duration `toml:"settle_delay"`     // Fixed settle delay after load (default: 3s)
	ReadySelector   string   `toml:"ready_selector"`   // CSS selector polled in selector mode
	PollInterval    Duration `toml:"poll_interval"`    // Interval between readiness polls
	MaxPolls        int      `toml:"max_polls"`        // Readiness poll budget
	RequestInterval Duration `toml:"request_interval"` // Minimum spacing between navigations, 0 = none
}

// CrawlerConfig contains crawl loop behaviour
type CrawlerConfig struct {
	Resume bool `toml:"resume"` // Skip indices recorded in the completion ledger
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
	FilePath   string   `toml:"file_path"`   // Log file when "file" output is enabled
}

const (
	SessionBackendFile   = "file"
	SessionBackendBadger = "badger"

	IsolationShared = "shared"
	IsolationReset  = "reset"
	IsolationFresh  = "fresh"

	SettleFixed    = "fixed"
	SettleSelector = "selector"
)

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			LoginURL: "https://www.newscientist.com/login/",
		},
		Session: SessionConfig{
			Backend: SessionBackendFile,
			Path:    "./session_state.json",
		},
		Targets: TargetsConfig{
			Path: "./targets.json",
		},
		Output: OutputConfig{
			Dir:       "./rendered_html",
			Prefix:    "article_",
			Extension: ".html",
			Width:     4,
		},
		Browser: BrowserConfig{
			Headless:   true,
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NoSandbox:  false,
			DisableGPU: true,
			Isolation:  IsolationReset,
		},
		Render: RenderConfig{
			Timeout:         Duration{120 * time.Second},
			SettleMode:      SettleFixed,
			SettleDelay:     Duration{3 * time.Second}, // Paywalled content renders after the load event
			PollInterval:    Duration{250 * time.Millisecond},
			MaxPolls:        40,
			RequestInterval: Duration{0},
		},
		Crawler: CrawlerConfig{
			Resume: false,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			FilePath:   "./logs/folio.log",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files; CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies FOLIO_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if name := os.Getenv("FOLIO_SITE_NAME"); name != "" {
		config.Site.Name = name
	}
	if loginURL := os.Getenv("FOLIO_SITE_LOGIN_URL"); loginURL != "" {
		config.Site.LoginURL = loginURL
	}

	if backend := os.Getenv("FOLIO_SESSION_BACKEND"); backend != "" {
		config.Session.Backend = backend
	}
	if path := os.Getenv("FOLIO_SESSION_PATH"); path != "" {
		config.Session.Path = path
	}

	if path := os.Getenv("FOLIO_TARGETS_PATH"); path != "" {
		config.Targets.Path = path
	}

	if dir := os.Getenv("FOLIO_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if prefix := os.Getenv("FOLIO_OUTPUT_PREFIX"); prefix != "" {
		config.Output.Prefix = prefix
	}

	if headless := os.Getenv("FOLIO_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if noSandbox := os.Getenv("FOLIO_BROWSER_NO_SANDBOX"); noSandbox != "" {
		if ns, err := strconv.ParseBool(noSandbox); err == nil {
			config.Browser.NoSandbox = ns
		}
	}
	if execPath := os.Getenv("FOLIO_BROWSER_EXEC_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}
	if isolation := os.Getenv("FOLIO_BROWSER_ISOLATION"); isolation != "" {
		config.Browser.Isolation = isolation
	}

	if timeout := os.Getenv("FOLIO_RENDER_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Render.Timeout = Duration{d}
		}
	}
	if mode := os.Getenv("FOLIO_RENDER_SETTLE_MODE"); mode != "" {
		config.Render.SettleMode = mode
	}
	if delay := os.Getenv("FOLIO_RENDER_SETTLE_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Render.SettleDelay = Duration{d}
		}
	}
	if selector := os.Getenv("FOLIO_RENDER_READY_SELECTOR"); selector != "" {
		config.Render.ReadySelector = selector
	}
	if interval := os.Getenv("FOLIO_RENDER_REQUEST_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Render.RequestInterval = Duration{d}
		}
	}

	if resume := os.Getenv("FOLIO_CRAWLER_RESUME"); resume != "" {
		if r, err := strconv.ParseBool(resume); err == nil {
			config.Crawler.Resume = r
		}
	}

	if badgerPath := os.Getenv("FOLIO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FOLIO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// FlagOverrides carries command-line values that win over every other source
type FlagOverrides struct {
	LogLevel    string
	TargetsPath string
	OutputDir   string
	SessionPath string
	Timeout     time.Duration
	Resume      *bool
	Headless    *bool
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.LogLevel != "" {
		config.Logging.Level = flags.LogLevel
	}
	if flags.TargetsPath != "" {
		config.Targets.Path = flags.TargetsPath
	}
	if flags.OutputDir != "" {
		config.Output.Dir = flags.OutputDir
	}
	if flags.SessionPath != "" {
		config.Session.Path = flags.SessionPath
	}
	if flags.Timeout > 0 {
		config.Render.Timeout = Duration{flags.Timeout}
	}
	if flags.Resume != nil {
		config.Crawler.Resume = *flags.Resume
	}
	if flags.Headless != nil {
		config.Browser.Headless = *flags.Headless
	}
}

// Validate checks enum values and durations after all sources are merged
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendFile:
		if strings.TrimSpace(c.Session.Path) == "" {
			return fmt.Errorf("session.path is required for the file backend")
		}
	case SessionBackendBadger:
		if strings.TrimSpace(c.Storage.Badger.Path) == "" {
			return fmt.Errorf("storage.badger.path is required for the badger session backend")
		}
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", SessionBackendFile, SessionBackendBadger, c.Session.Backend)
	}

	switch c.Browser.Isolation {
	case IsolationShared, IsolationReset, IsolationFresh:
	default:
		return fmt.Errorf("browser.isolation must be one of shared, reset, fresh, got %q", c.Browser.Isolation)
	}

	if c.Render.Timeout.Duration <= 0 {
		return fmt.Errorf("render.timeout must be greater than zero")
	}
	if c.Render.RequestInterval.Duration < 0 {
		return fmt.Errorf("render.request_interval cannot be negative")
	}

	switch c.Render.SettleMode {
	case SettleFixed:
		if c.Render.SettleDelay.Duration < 0 {
			return fmt.Errorf("render.settle_delay cannot be negative")
		}
	case SettleSelector:
		if strings.TrimSpace(c.Render.ReadySelector) == "" {
			return fmt.Errorf("render.ready_selector is required when settle_mode is %q", SettleSelector)
		}
		if c.Render.PollInterval.Duration <= 0 || c.Render.MaxPolls <= 0 {
			return fmt.Errorf("render.poll_interval and render.max_polls must be greater than zero")
		}
	default:
		return fmt.Errorf("render.settle_mode must be %q or %q, got %q", SettleFixed, SettleSelector, c.Render.SettleMode)
	}

	if c.Output.Width <= 0 {
		return fmt.Errorf("output.width must be greater than zero")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}

	return nil
}

// Duration is a time.Duration read from TOML strings such as "120s" or "250ms"
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration in Go notation
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// SiteIdentity returns the configured site name, falling back to the login URL host
func (c *Config) SiteIdentity() string {
	if name := strings.TrimSpace(c.Site.Name); name != "" {
		return name
	}
	return c.Site.LoginURL
}
