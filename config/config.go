// Package config loads autoreload settings from defaults, an optional YAML
// file and AUTORELOAD_* environment variables, in that order of precedence
// (later wins). Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the YAML file read when it exists and no path is given.
const DefaultFile = ".autoreload.yaml"

var (
	// ErrInvalidConfig groups every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// FieldError reports a problem with one setting.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// Config is the full set of settings used by the CLI.
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Serve ServeConfig `yaml:"serve"`
	Watch WatchConfig `yaml:"watch"`
	Dev   DevConfig   `yaml:"dev"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`
}

// ServeConfig configures the demo server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
	// Dir optionally serves static files next to the demo page.
	Dir string `yaml:"dir"`
	// Reload injects the browser reload script into HTML pages.
	Reload bool `yaml:"reload"`
	// Token selects the token source: nonce or build.
	Token           string        `yaml:"token"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WatchConfig configures the Go poller.
type WatchConfig struct {
	URL  string `yaml:"url"`
	Exec string `yaml:"exec"`
	Dir  string `yaml:"dir"`
	// Timeout bounds each health check request; zero leaves it unbounded.
	Timeout time.Duration `yaml:"timeout"`
}

// DevConfig configures the restart-on-change runner.
type DevConfig struct {
	Dir      string        `yaml:"dir"`
	Run      string        `yaml:"run"`
	Watch    []string      `yaml:"watch"`
	Exclude  []string      `yaml:"exclude"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Format: "text", Level: "info"},
		Serve: ServeConfig{
			Addr:            ":8080",
			Reload:          true,
			Token:           "nonce",
			ShutdownTimeout: 5 * time.Second,
		},
		Watch: WatchConfig{URL: "http://localhost:8080", Dir: "."},
		Dev: DevConfig{
			Dir:      ".",
			Watch:    []string{"**/*.go", "**/*.html", "**/*.css", "**/*.js"},
			Exclude:  []string{".git/**", "vendor/**", "node_modules/**", "**/*_test.go"},
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path reads DefaultFile when present; an explicit
// path that does not exist is an error. The result is not validated:
// callers apply their flag overrides first and then call Validate for the
// sections they use.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	envString("LOG_FORMAT", &c.Log.Format)
	envString("LOG_LEVEL", &c.Log.Level)

	envString("SERVE_ADDR", &c.Serve.Addr)
	envString("SERVE_DIR", &c.Serve.Dir)
	envString("SERVE_TOKEN", &c.Serve.Token)

	envString("WATCH_URL", &c.Watch.URL)
	envString("WATCH_EXEC", &c.Watch.Exec)
	envString("WATCH_DIR", &c.Watch.Dir)

	envString("DEV_DIR", &c.Dev.Dir)
	envString("DEV_RUN", &c.Dev.Run)
	envList("DEV_WATCH", &c.Dev.Watch)
	envList("DEV_EXCLUDE", &c.Dev.Exclude)

	return errors.Join(
		envBool("SERVE_RELOAD", &c.Serve.Reload),
		envDuration("SERVE_SHUTDOWN_TIMEOUT", &c.Serve.ShutdownTimeout),
		envDuration("WATCH_TIMEOUT", &c.Watch.Timeout),
		envDuration("DEV_DEBOUNCE", &c.Dev.Debounce),
	)
}

// Section names one part of Config for Validate.
type Section int

const (
	SectionLog Section = iota
	SectionServe
	SectionWatch
	SectionDev
)

// Validate checks the given sections, or every section when none is given,
// without side effects.
func (c Config) Validate(sections ...Section) error {
	if len(sections) == 0 {
		sections = []Section{SectionLog, SectionServe, SectionWatch, SectionDev}
	}

	var errs []error
	add := func(field string, err error) {
		errs = append(errs, &FieldError{Field: field, Err: err})
	}

	for _, section := range sections {
		switch section {
		case SectionLog:
			switch c.Log.Format {
			case "text", "json":
			default:
				add("log.format", fmt.Errorf("unknown format %q", c.Log.Format))
			}

		case SectionServe:
			if _, _, err := net.SplitHostPort(c.Serve.Addr); err != nil {
				add("serve.addr", err)
			}
			switch c.Serve.Token {
			case "nonce", "build":
			default:
				add("serve.token", fmt.Errorf("unknown token source %q", c.Serve.Token))
			}
			if c.Serve.ShutdownTimeout <= 0 {
				add("serve.shutdown_timeout", errors.New("must be positive"))
			}

		case SectionWatch:
			if u, err := url.Parse(c.Watch.URL); err != nil {
				add("watch.url", err)
			} else if u.Scheme != "http" && u.Scheme != "https" {
				add("watch.url", fmt.Errorf("unsupported scheme %q", u.Scheme))
			}
			if c.Watch.Timeout < 0 {
				add("watch.timeout", errors.New("must not be negative"))
			}

		case SectionDev:
			if c.Dev.Debounce < 0 {
				add("dev.debounce", errors.New("must not be negative"))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
