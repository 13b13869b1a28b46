// Package config provides configuration management for the page builder
// using Viper for loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports a .pagebuilder.yml file, environment
// variable overrides with the PAGEBUILDER_ prefix and validation. It covers
// the preview server, builder limits and metadata, import constraints,
// editor and gesture timings, the template catalog and logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/pagebuilder/internal/dragdrop"
	"github.com/conneroisu/pagebuilder/internal/editor"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/transfer"
	"github.com/conneroisu/pagebuilder/internal/types"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// PAGEBUILDER_SERVER_PORT.
const EnvPrefix = "PAGEBUILDER"

// DefaultMaxSections limits how many sections a design may hold.
const DefaultMaxSections = 50

type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Builder BuilderConfig `yaml:"builder" mapstructure:"builder"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Editor  EditorConfig  `yaml:"editor" mapstructure:"editor"`
	Drag    DragConfig    `yaml:"drag" mapstructure:"drag"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Host           string   `yaml:"host" mapstructure:"host"`
	Open           bool     `yaml:"open" mapstructure:"open"`
	NoOpen         bool     `yaml:"no-open" mapstructure:"no-open"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Environment    string   `yaml:"environment" mapstructure:"environment"`
}

type BuilderConfig struct {
	MaxSections       int      `yaml:"max_sections" mapstructure:"max_sections"`
	DesignTitle       string   `yaml:"design_title" mapstructure:"design_title"`
	DesignDescription string   `yaml:"design_description" mapstructure:"design_description"`
	Author            string   `yaml:"author" mapstructure:"author"`
	Tags              []string `yaml:"tags" mapstructure:"tags"`
	DesignFile        string   `yaml:"design_file" mapstructure:"design_file"`
	WatchDesign       bool     `yaml:"watch_design" mapstructure:"watch_design"`
}

type ImportConfig struct {
	MaxFileSize int64  `yaml:"max_file_size" mapstructure:"max_file_size"`
	ExportDir   string `yaml:"export_dir" mapstructure:"export_dir"`
}

type EditorConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type DragConfig struct {
	TouchThreshold float64       `yaml:"touch_threshold" mapstructure:"touch_threshold"`
	ScrollBand     float64       `yaml:"scroll_band" mapstructure:"scroll_band"`
	ScrollStep     float64       `yaml:"scroll_step" mapstructure:"scroll_step"`
	ScrollInterval time.Duration `yaml:"scroll_interval" mapstructure:"scroll_interval"`
}

type CatalogConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Watch bool   `yaml:"watch" mapstructure:"watch"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Dir    string `yaml:"dir" mapstructure:"dir"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Lists set from env vars arrive as one comma separated string, or split
	// on commas with the surrounding spaces left in.
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)
	config.Builder.Tags = splitList(config.Builder.Tags)

	applyDefaults(&config, viper.IsSet("server.port"))

	// Override open if no-open was explicitly set via flag
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.Open = false
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults registers every key with viper so that environment overrides
// such as PAGEBUILDER_SERVER_PORT are seen by Unmarshal.
func SetDefaults() {
	d := Default()

	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.open", d.Server.Open)
	viper.SetDefault("server.allowed_origins", []string{})
	viper.SetDefault("server.environment", d.Server.Environment)

	viper.SetDefault("builder.max_sections", d.Builder.MaxSections)
	viper.SetDefault("builder.design_title", d.Builder.DesignTitle)
	viper.SetDefault("builder.design_description", d.Builder.DesignDescription)
	viper.SetDefault("builder.author", "")
	viper.SetDefault("builder.tags", []string{})
	viper.SetDefault("builder.design_file", "")
	viper.SetDefault("builder.watch_design", false)

	viper.SetDefault("import.max_file_size", d.Import.MaxFileSize)
	viper.SetDefault("import.export_dir", d.Import.ExportDir)

	viper.SetDefault("editor.debounce", d.Editor.Debounce)

	viper.SetDefault("drag.touch_threshold", d.Drag.TouchThreshold)
	viper.SetDefault("drag.scroll_band", d.Drag.ScrollBand)
	viper.SetDefault("drag.scroll_step", d.Drag.ScrollStep)
	viper.SetDefault("drag.scroll_interval", d.Drag.ScrollInterval)

	viper.SetDefault("catalog.path", "")
	viper.SetDefault("catalog.watch", false)

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
	viper.SetDefault("log.dir", "")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	applyDefaults(&config, false)

	return &config
}

// applyDefaults fills zero values. portSet keeps an explicit port 0, which
// asks the system for a free port.
func applyDefaults(config *Config, portSet bool) {
	// Apply default values for ServerConfig if not set
	if config.Server.Port == 0 && !portSet {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}

	// Apply default values for BuilderConfig if not set
	if config.Builder.MaxSections == 0 {
		config.Builder.MaxSections = DefaultMaxSections
	}
	md := types.DefaultMetadata()
	if config.Builder.DesignTitle == "" {
		config.Builder.DesignTitle = md.Title
	}
	if config.Builder.DesignDescription == "" {
		config.Builder.DesignDescription = md.Description
	}

	// Apply default values for ImportConfig if not set
	if config.Import.MaxFileSize == 0 {
		config.Import.MaxFileSize = transfer.DefaultMaxSize
	}
	if config.Import.ExportDir == "" {
		config.Import.ExportDir = "."
	}

	// Apply default values for EditorConfig if not set
	if config.Editor.Debounce == 0 {
		config.Editor.Debounce = editor.DefaultDelay
	}

	// Apply default values for DragConfig if not set
	drag := dragdrop.DefaultConfig()
	if config.Drag.TouchThreshold == 0 {
		config.Drag.TouchThreshold = drag.TouchThreshold
	}
	if config.Drag.ScrollBand == 0 {
		config.Drag.ScrollBand = drag.ScrollBand
	}
	if config.Drag.ScrollStep == 0 {
		config.Drag.ScrollStep = drag.ScrollStep
	}
	if config.Drag.ScrollInterval == 0 {
		config.Drag.ScrollInterval = drag.ScrollInterval
	}

	// Apply default values for LogConfig if not set
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// Metadata returns the export metadata configured for the design.
func (c *Config) Metadata() types.Metadata {
	return types.Metadata{
		Title:       c.Builder.DesignTitle,
		Description: c.Builder.DesignDescription,
		Author:      c.Builder.Author,
		Tags:        append([]string(nil), c.Builder.Tags...),
	}
}

// DragSettings converts the drag section to controller settings.
func (c *Config) DragSettings() dragdrop.Config {
	return dragdrop.Config{
		TouchThreshold: c.Drag.TouchThreshold,
		ScrollBand:     c.Drag.ScrollBand,
		ScrollStep:     c.Drag.ScrollStep,
		ScrollInterval: c.Drag.ScrollInterval,
	}
}

// LoggerConfig converts the log section to logger settings.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.Format = c.Log.Format

	return lc
}

// Address returns host:port for the preview server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if result.HasErrors() {
		first := result.Errors[0]
		return &first
	}

	return nil
}
