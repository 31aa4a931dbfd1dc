// Package config loads the YAML configuration of the sysinfo command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/sysinfo/pkg/process"
)

var (
	ErrBadInterval = errors.New("config: interval must be > 0")
	ErrBadWorkers  = errors.New("config: workers must be >= 0")
	ErrBadSamples  = errors.New("config: samples must be >= 0")
	ErrBadBudget   = errors.New("config: handle_budget must be >= 0")
	ErrBadLevel    = errors.New("config: unknown log level")
	ErrBadUpdate   = errors.New("config: update must be never, always or if_not_set")
	ErrBadAlpha    = errors.New("config: alpha must be in [0,1]")
)

// Config is the on-disk configuration. Every field has a usable default.
type Config struct {
	// Interval between refreshes of the top and serve commands.
	Interval time.Duration `yaml:"interval"`
	// Samples is how many refreshes top performs, 0 runs until interrupted.
	Samples int `yaml:"samples"`
	// Workers bounds refresh parallelism, 0 means one per logical core.
	Workers int `yaml:"workers"`
	// HandleBudget overrides the cached handle budget derived from
	// RLIMIT_NOFILE when > 0.
	HandleBudget int    `yaml:"handle_budget"`
	LogLevel     string `yaml:"log_level"`
	// ProcRoot is the procfs mount point.
	ProcRoot string  `yaml:"proc_root"`
	Refresh  Refresh `yaml:"refresh"`
	Metrics  Metrics `yaml:"metrics"`
	Power    Power   `yaml:"power"`
}

// Refresh mirrors process.RefreshKind. Update fields take never, always or
// if_not_set.
type Refresh struct {
	CPU       bool   `yaml:"cpu"`
	Memory    bool   `yaml:"memory"`
	DiskUsage bool   `yaml:"disk_usage"`
	Tasks     bool   `yaml:"tasks"`
	Cmd       string `yaml:"cmd"`
	Environ   string `yaml:"environ"`
	Cwd       string `yaml:"cwd"`
	Root      string `yaml:"root"`
	Exe       string `yaml:"exe"`
	User      string `yaml:"user"`
}

type Metrics struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// Power holds the coefficients of the power model, see consumption.Config.
type Power struct {
	PIdle   float64 `yaml:"p_idle"`
	PMax    float64 `yaml:"p_max"`
	Gamma   float64 `yaml:"gamma"`
	ER      float64 `yaml:"er"`
	EW      float64 `yaml:"ew"`
	EMemRSS float64 `yaml:"e_mem_rss"`
	Alpha   float64 `yaml:"alpha"`
	// EMA smooths system usage between samples, 0 disables it.
	EMA float64 `yaml:"ema"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Interval: time.Second,
		Samples:  0,
		LogLevel: "info",
		ProcRoot: "/proc",
		Refresh: Refresh{
			CPU:       true,
			Memory:    true,
			DiskUsage: true,
			Cmd:       "if_not_set",
			Exe:       "if_not_set",
			User:      "if_not_set",
			Environ:   "never",
			Cwd:       "never",
			Root:      "never",
		},
		Metrics: Metrics{Listen: ":9256", Path: "/metrics"},
		Power: Power{
			PIdle:   5.0,
			PMax:    20.0,
			Gamma:   1.3,
			ER:      4.8e-8,
			EW:      9.5e-8,
			EMemRSS: 3e-10,
			EMA:     0.5,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return ErrBadInterval
	case c.Workers < 0:
		return ErrBadWorkers
	case c.Samples < 0:
		return ErrBadSamples
	case c.HandleBudget < 0:
		return ErrBadBudget
	case c.Power.Alpha < 0 || c.Power.Alpha > 1 || c.Power.EMA < 0 || c.Power.EMA > 1:
		return ErrBadAlpha
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	_, err := c.Refresh.Kind()
	return err
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadLevel, c.LogLevel)
	}
	return l, nil
}

// Kind converts the section into a process.RefreshKind.
func (r Refresh) Kind() (process.RefreshKind, error) {
	k := process.RefreshKind{
		CPU:       r.CPU,
		Memory:    r.Memory,
		DiskUsage: r.DiskUsage,
		Tasks:     r.Tasks,
	}
	for _, f := range []struct {
		val string
		dst *process.UpdateKind
	}{
		{r.Cmd, &k.Cmd},
		{r.Environ, &k.Environ},
		{r.Cwd, &k.Cwd},
		{r.Root, &k.Root},
		{r.Exe, &k.Exe},
		{r.User, &k.User},
	} {
		u, err := parseUpdate(f.val)
		if err != nil {
			return process.RefreshKind{}, err
		}
		*f.dst = u
	}
	return k, nil
}

func parseUpdate(s string) (process.UpdateKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "never":
		return process.UpdateNever, nil
	case "always":
		return process.UpdateAlways, nil
	case "if_not_set", "only_if_not_set":
		return process.UpdateOnlyIfNotSet, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadUpdate, s)
	}
}
