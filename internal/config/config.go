// Package config provides configuration management for linkscout.
// It defines configuration structures and default values for scanning.
package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// AppName names the config directory and file.
const AppName = "linkscout"

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // json, text, console
	File       string `mapstructure:"file" yaml:"file"`               // Log file path, empty for stderr only
	MaxSize    int64  `mapstructure:"max_size" yaml:"max_size"`       // Rotate after this many bytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files to keep
}

// ScanConfig holds scanner configuration
type ScanConfig struct {
	// Traversal
	Budget            int      `mapstructure:"budget" yaml:"budget"`                         // Budget of the start page
	BudgetPolicy      string   `mapstructure:"budget_policy" yaml:"budget_policy"`           // sibling or depth
	IgnoredExtensions []string `mapstructure:"ignored_extensions" yaml:"ignored_extensions"` // Local links never followed
	Extractor         string   `mapstructure:"extractor" yaml:"extractor"`                   // pattern or html

	// HTTP
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	RequestDelay   time.Duration `mapstructure:"request_delay" yaml:"request_delay"`     // Minimum delay between requests to a host
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	MaxBodySize    int64         `mapstructure:"max_body_size" yaml:"max_body_size"`     // Bytes read per page
	HostDelays     []string      `mapstructure:"host_delays" yaml:"host_delays"`         // Per-host delay overrides, "host=duration"

	// Output
	Output string `mapstructure:"output" yaml:"output"` // text, json or markdown

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *ScanConfig {
	return &ScanConfig{
		Budget:            10,
		BudgetPolicy:      "sibling",
		IgnoredExtensions: []string{".ico", ".xml"},
		Extractor:         "pattern",
		RequestTimeout:    30 * time.Second,
		RequestDelay:      0,
		UserAgent:         "linkscout/dev",
		MaxBodySize:       10 * 1024 * 1024,
		Output:            "text",
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    100 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *ScanConfig) Validate() error {
	if c.Budget < 0 {
		return ErrInvalidBudget
	}

	if !slices.Contains([]string{"sibling", "depth"}, c.BudgetPolicy) {
		return ErrInvalidBudgetPolicy
	}

	if !slices.Contains([]string{"pattern", "html"}, c.Extractor) {
		return ErrInvalidExtractor
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RequestDelay < 0 {
		return ErrInvalidDelay
	}

	if _, err := c.ParseHostDelays(); err != nil {
		return err
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if !slices.Contains([]string{"text", "json", "markdown"}, c.Output) {
		return ErrInvalidOutput
	}

	if !slices.Contains([]string{"json", "text", "console"}, c.Log.Format) {
		return ErrInvalidLogFormat
	}

	return nil
}

// ParseHostDelays converts the host_delays entries into a map keyed by
// lowercased host (host or host:port).
func (c *ScanConfig) ParseHostDelays() (map[string]time.Duration, error) {
	if len(c.HostDelays) == 0 {
		return nil, nil
	}

	delays := make(map[string]time.Duration, len(c.HostDelays))
	for _, entry := range c.HostDelays {
		host, value, ok := strings.Cut(entry, "=")
		host = strings.ToLower(strings.TrimSpace(host))
		if !ok || host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHostDelay, entry)
		}
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHostDelay, entry)
		}
		delays[host] = d
	}
	return delays, nil
}

// XDGConfigDir returns the per-user config directory, for example
// ~/.config/linkscout on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SearchPaths lists the directories searched for linkscout.yml, highest
// priority first.
func SearchPaths() []string {
	return []string{".", XDGConfigDir()}
}
