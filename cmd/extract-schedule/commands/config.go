package commands

import (
	"fmt"
	"schedule-extractor/internal/acquire"
	"schedule-extractor/internal/browser"
	"time"
)

type ChromeConfig struct {
	ExecPath  string `json:"exec_path"`
	RemoteURL string `json:"remote_url"`
	NoSandbox bool   `json:"no_sandbox"`

	// OperationTimeout bounds script evaluation and screenshots.
	OperationTimeout string `json:"operation_timeout"`
}

// Config is the shape of config.json5, durations are go duration strings
// ("5s", "1m").
type Config struct {
	URL               string       `json:"url"`
	ContainerID       string       `json:"container_id"`
	MaxAttempts       int          `json:"max_attempts"`
	InitialDelay      string       `json:"initial_delay"`
	NavigationTimeout string       `json:"navigation_timeout"`
	SettleDelay       string       `json:"settle_delay"`
	UserAgent         string       `json:"user_agent"`
	OutputDir         string       `json:"output_dir"`
	HistoryDb         string       `json:"history_db"`
	PerfStatsInterval string       `json:"perf_stats_interval"`
	Chrome            ChromeConfig `json:"chrome"`
}

func defaultConfig() Config {
	opts := acquire.DefaultOptions()
	return Config{
		URL:               opts.URL,
		ContainerID:       opts.ContainerID,
		MaxAttempts:       opts.MaxAttempts,
		InitialDelay:      opts.InitialDelay.String(),
		NavigationTimeout: opts.NavigationTimeout.String(),
		SettleDelay:       opts.SettleDelay.String(),
		UserAgent:         opts.Identity.UserAgent,
		OutputDir:         ".",
		Chrome: ChromeConfig{
			OperationTimeout: browser.DefaultOperationTimeout.String(),
		},
	}
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	return d, nil
}

func (c Config) options() (acquire.Options, error) {
	if c.MaxAttempts <= 0 {
		return acquire.Options{}, fmt.Errorf("config: max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.URL == "" || c.ContainerID == "" {
		return acquire.Options{}, fmt.Errorf("config: url and container_id are required")
	}

	initialDelay, err := parseDuration("initial_delay", c.InitialDelay)
	if err != nil {
		return acquire.Options{}, err
	}
	navigationTimeout, err := parseDuration("navigation_timeout", c.NavigationTimeout)
	if err != nil {
		return acquire.Options{}, err
	}
	settleDelay, err := parseDuration("settle_delay", c.SettleDelay)
	if err != nil {
		return acquire.Options{}, err
	}

	return acquire.Options{
		URL:               c.URL,
		ContainerID:       c.ContainerID,
		MaxAttempts:       c.MaxAttempts,
		InitialDelay:      initialDelay,
		NavigationTimeout: navigationTimeout,
		SettleDelay:       settleDelay,
		Identity:          browser.Identity{UserAgent: c.UserAgent},
	}, nil
}

// perfStatsInterval is zero when perf stats are off.
func (c Config) perfStatsInterval() (time.Duration, error) {
	if c.PerfStatsInterval == "" {
		return 0, nil
	}
	return parseDuration("perf_stats_interval", c.PerfStatsInterval)
}

func (c Config) engine() (browser.Chrome, error) {
	timeout, err := parseDuration("chrome.operation_timeout", c.Chrome.OperationTimeout)
	if err != nil {
		return browser.Chrome{}, err
	}
	return browser.Chrome{
		ExecPath:         c.Chrome.ExecPath,
		RemoteURL:        c.Chrome.RemoteURL,
		NoSandbox:        c.Chrome.NoSandbox,
		OperationTimeout: timeout,
	}, nil
}

func (c Config) artifacts() acquire.Artifacts {
	return acquire.Artifacts{Dir: c.OutputDir}
}
