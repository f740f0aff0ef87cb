// Package config provides configuration loading for foldkit.
//
// Configuration comes from an optional YAML file overridden by FOLDKIT_*
// environment variables, then defaults fill the gaps. Sections owned by
// other packages (logging, telemetry) are decoded on demand with
// Config.Section so those packages keep their own defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"
)

// Folding strategies.
const (
	StrategyAuto        = "auto"
	StrategyIndentation = "indentation"
)

// Gutter visibility modes.
const (
	ShowFoldingsAlways    = "always"
	ShowFoldingsMouseover = "mouseover"
	ShowFoldingsNever     = "never"
)

// Config holds the complete foldkit configuration.
type Config struct {
	Folding   FoldingConfig   `koanf:"folding"`
	Languages LanguagesConfig `koanf:"languages"`
	LSP       LSPConfig       `koanf:"lsp"`
	Server    ServerConfig    `koanf:"server"`
	ViewState ViewStateConfig `koanf:"viewstate"`
	NATS      NATSConfig      `koanf:"nats"`

	k *koanf.Koanf
}

// FoldingConfig holds the folding behaviour of every document.
type FoldingConfig struct {
	Strategy                    string   `koanf:"strategy"`
	MaxRegions                  int      `koanf:"max_regions"`
	MaxDocumentLines            int      `koanf:"max_document_lines"`
	DebounceMin                 Duration `koanf:"debounce_min"`
	DebounceMax                 Duration `koanf:"debounce_max"`
	ImportsByDefault            bool     `koanf:"folding_imports_by_default"`
	UnfoldOnClickAfterEndOfLine bool     `koanf:"unfold_on_click_after_end_of_line"`
	ShowFoldings                string   `koanf:"show_foldings"`
}

// LanguagesConfig points at a language rules file merged over the
// built-in rules.
type LanguagesConfig struct {
	RulesPath string `koanf:"rules_path"`
}

// LSPConfig describes an external language server used as a syntax source.
type LSPConfig struct {
	Command     string   `koanf:"command"`
	Args        []string `koanf:"args"`
	LanguageIDs []string `koanf:"language_ids"`
	RootURI     string   `koanf:"root_uri"`
	Score       int      `koanf:"score"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	CommandRate     float64  `koanf:"command_rate"`
	CommandBurst    int      `koanf:"command_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ViewStateConfig controls the memento store.
type ViewStateConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Dir              string `koanf:"dir"`
	CompressionLevel int    `koanf:"compression_level"`
}

// NATSConfig controls publishing of hidden ranges.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	Token         Secret `koanf:"token"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Folding.Strategy == "" {
		cfg.Folding.Strategy = StrategyAuto
	}
	if cfg.Folding.MaxRegions == 0 {
		cfg.Folding.MaxRegions = 5000
	}
	if cfg.Folding.MaxDocumentLines == 0 {
		cfg.Folding.MaxDocumentLines = 300000
	}
	if cfg.Folding.DebounceMin == 0 {
		cfg.Folding.DebounceMin = Duration(200 * time.Millisecond)
	}
	if cfg.Folding.DebounceMax == 0 {
		cfg.Folding.DebounceMax = Duration(5 * time.Second)
	}
	if cfg.Folding.ShowFoldings == "" {
		cfg.Folding.ShowFoldings = ShowFoldingsMouseover
	}

	if cfg.LSP.Score == 0 {
		cfg.LSP.Score = 10
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.CommandRate == 0 {
		cfg.Server.CommandRate = 50
	}
	if cfg.Server.CommandBurst == 0 {
		cfg.Server.CommandBurst = 100
	}

	if cfg.ViewState.Dir == "" {
		cfg.ViewState.Dir = "~/.local/state/foldkit"
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://127.0.0.1:4222"
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "foldkit.hidden"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Folding.Strategy {
	case StrategyAuto, StrategyIndentation:
	default:
		return fmt.Errorf("invalid folding strategy %q (must be %s or %s)", c.Folding.Strategy, StrategyAuto, StrategyIndentation)
	}
	switch c.Folding.ShowFoldings {
	case ShowFoldingsAlways, ShowFoldingsMouseover, ShowFoldingsNever:
	default:
		return fmt.Errorf("invalid show_foldings %q", c.Folding.ShowFoldings)
	}
	if c.Folding.MaxRegions < 0 || c.Folding.MaxRegions > 0xFFFF {
		return fmt.Errorf("invalid max_regions: %d (must be 1-65535)", c.Folding.MaxRegions)
	}
	if c.Folding.MaxDocumentLines < 0 {
		return fmt.Errorf("invalid max_document_lines: %d", c.Folding.MaxDocumentLines)
	}
	if c.Folding.DebounceMin > c.Folding.DebounceMax {
		return fmt.Errorf("debounce_min %s exceeds debounce_max %s",
			c.Folding.DebounceMin.Duration(), c.Folding.DebounceMax.Duration())
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.CommandRate < 0 || c.Server.CommandBurst < 0 {
		return errors.New("command rate and burst must not be negative")
	}

	if c.ViewState.CompressionLevel < 0 || c.ViewState.CompressionLevel > 22 {
		return fmt.Errorf("invalid viewstate compression_level: %d (must be 0-22)", c.ViewState.CompressionLevel)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats url required when nats is enabled")
	}
	return nil
}

// Section decodes the raw values below path into out. Fields missing from
// the loaded sources keep the values out already holds.
func (c *Config) Section(path string, out any) error {
	if c.k == nil || !c.k.Exists(path) {
		return nil
	}
	if err := c.k.Unmarshal(path, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", path, err)
	}
	return nil
}
