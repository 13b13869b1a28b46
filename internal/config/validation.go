package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// ValidateConfigWithDetails performs comprehensive validation with detailed feedback
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validateBuilderConfigDetails(&config.Builder, result)
	validateImportConfigDetails(&config.Import, result)
	validateEditorConfigDetails(&config.Editor, result)
	validateDragConfigDetails(&config.Drag, result)
	validateCatalogConfigDetails(&config.Catalog, result)
	validateLogConfigDetails(&config.Log, result)

	// Set overall validity
	result.Valid = !result.HasErrors()

	return result
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	// Validate port
	if config.Port < 0 || config.Port > 65535 {
		result.addError("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Common development ports: 3000, 8080, 8000, 3001",
			"Port 0 allows system to assign an available port",
		)
	} else if config.Port > 0 && config.Port < 1024 {
		result.addWarning("server.port", config.Port,
			"port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development",
		)
	}

	// Validate host
	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.addError("server.host", config.Host, err.Error(),
				"Use 'localhost' for local development",
				"Use '0.0.0.0' to bind to all interfaces",
			)
		}
	}

	// Validate environment
	validEnvs := []string{"development", "production", "testing"}
	if config.Environment != "" && !contains(validEnvs, config.Environment) {
		result.addWarning("server.environment", config.Environment, "unknown environment type",
			"Use 'development' for local development",
			"Use 'production' for production deployments",
		)
	}

	// Validate allowed origins
	for _, origin := range config.AllowedOrigins {
		if strings.Contains(origin, "://") {
			parsed, err := url.Parse(origin)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				result.addError("server.allowed_origins", origin, fmt.Sprintf("invalid origin '%s'", origin),
					"Use a full origin such as http://localhost:3000",
					"Or a bare host such as localhost:3000",
				)
			}
			continue
		}
		if err := validateHostname(strings.Split(origin, ":")[0]); err != nil {
			result.addError("server.allowed_origins", origin, fmt.Sprintf("invalid origin host '%s': %v", origin, err))
		}
	}
}

func validateBuilderConfigDetails(config *BuilderConfig, result *ValidationResult) {
	if config.MaxSections < 1 || config.MaxSections > 1000 {
		result.addError("builder.max_sections", config.MaxSections,
			fmt.Sprintf("max_sections %d is not in valid range 1-1000", config.MaxSections),
			fmt.Sprintf("The default is %d", DefaultMaxSections),
		)
	}

	if config.DesignFile != "" {
		if err := validation.ValidatePath(config.DesignFile); err != nil {
			result.addError("builder.design_file", config.DesignFile, err.Error())
		} else if !validation.HasExtension(config.DesignFile, ".json") {
			result.addWarning("builder.design_file", config.DesignFile, "design file does not end in .json")
		}
	}
	if config.WatchDesign && config.DesignFile == "" {
		result.addWarning("builder.watch_design", config.WatchDesign, "watch_design has no effect without design_file",
			"Set builder.design_file or pass --design",
		)
	}
}

func validateImportConfigDetails(config *ImportConfig, result *ValidationResult) {
	const warnAbove = 100 * 1024 * 1024

	if config.MaxFileSize <= 0 {
		result.addError("import.max_file_size", config.MaxFileSize, "max_file_size must be positive")
	} else if config.MaxFileSize > warnAbove {
		result.addWarning("import.max_file_size", config.MaxFileSize, "max_file_size above 100MB",
			"Designs are small JSON documents; the default is 10MB",
		)
	}

	if config.ExportDir != "" {
		if err := validation.ValidatePath(config.ExportDir); err != nil {
			result.addError("import.export_dir", config.ExportDir, err.Error())
		}
	}
}

func validateEditorConfigDetails(config *EditorConfig, result *ValidationResult) {
	switch {
	case config.Debounce < 0 || config.Debounce > 10*time.Second:
		result.addError("editor.debounce", config.Debounce.String(), "debounce must be between 0s and 10s")
	case config.Debounce > 0 && config.Debounce < 50*time.Millisecond:
		result.addWarning("editor.debounce", config.Debounce.String(), "debounce below 50ms commits on almost every keystroke")
	}
}

func validateDragConfigDetails(config *DragConfig, result *ValidationResult) {
	if config.TouchThreshold <= 0 {
		result.addError("drag.touch_threshold", config.TouchThreshold, "touch_threshold must be positive")
	}
	if config.ScrollBand < 0 {
		result.addError("drag.scroll_band", config.ScrollBand, "scroll_band must not be negative")
	}
	if config.ScrollStep <= 0 {
		result.addError("drag.scroll_step", config.ScrollStep, "scroll_step must be positive")
	}
	if config.ScrollInterval < time.Millisecond {
		result.addError("drag.scroll_interval", config.ScrollInterval.String(), "scroll_interval must be at least 1ms")
	}
}

func validateCatalogConfigDetails(config *CatalogConfig, result *ValidationResult) {
	if config.Path == "" {
		if config.Watch {
			result.addWarning("catalog.watch", config.Watch, "catalog.watch has no effect without catalog.path")
		}
		return
	}

	if err := validation.ValidatePath(config.Path); err != nil {
		result.addError("catalog.path", config.Path, err.Error())
		return
	}
	if !validation.HasExtension(config.Path, ".yml", ".yaml") {
		result.addWarning("catalog.path", config.Path, "catalog file does not end in .yml or .yaml")
	}
	if !pathExists(config.Path) {
		result.addWarning("catalog.path", config.Path, "catalog file does not exist",
			"Only the built-in templates will be available until it is created",
		)
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.addError("log.level", config.Level, err.Error(),
			"Use one of: debug, info, warn, error, fatal",
		)
	}
	if config.Format != "text" && config.Format != "json" {
		result.addError("log.format", config.Format, fmt.Sprintf("unknown log format '%s'", config.Format),
			"Use 'text' or 'json'",
		)
	}
	if config.Dir != "" {
		if err := validation.ValidatePath(config.Dir); err != nil {
			result.addError("log.dir", config.Dir, err.Error())
		}
	}
}

// Helper validation functions

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	// Check for dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	// Check if it's a valid IP address
	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
