package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	imageURLPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	colorPattern    = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// ValidateURL validates URLs for browser auto-open functionality
// Prevents command injection via URL parameters
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow http/https schemes to prevent protocol handlers
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r"}
	for _, char := range dangerous {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains dangerous character: %s", char)
		}
	}

	if strings.Contains(rawURL, " ") {
		return fmt.Errorf("URL contains spaces (possible command injection attempt)")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}

// ValidatePropertyURL validates a link entered in the property editor.
// Absolute http(s) URLs, in-page anchors ("#about"), site-relative paths
// ("/pricing") and mailto/tel links are accepted. The empty string is valid.
func ValidatePropertyURL(rawURL string) error {
	if rawURL == "" || strings.HasPrefix(rawURL, "#") {
		return nil
	}
	if strings.ContainsAny(rawURL, " \n\r\t") {
		return fmt.Errorf("URL must not contain whitespace")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "":
		if strings.HasPrefix(rawURL, "/") && !strings.HasPrefix(rawURL, "//") {
			return nil
		}
		return fmt.Errorf("relative links must start with / or #")
	case "http", "https":
		if parsed.Host == "" {
			return fmt.Errorf("URL must have a valid hostname")
		}
		return nil
	case "mailto", "tel":
		if parsed.Opaque == "" {
			return fmt.Errorf("%s link is empty", parsed.Scheme)
		}
		return nil
	default:
		return fmt.Errorf("invalid URL scheme: %s", parsed.Scheme)
	}
}

// ValidateImageURL checks that rawURL is an absolute http(s) URL pointing at
// a common image format. The empty string is valid.
func ValidateImageURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("image URL must be an absolute http(s) URL")
	}
	if !imageURLPattern.MatchString(parsed.Path) {
		return fmt.Errorf("image URL must end in .jpg, .jpeg, .png, .gif, .webp or .svg")
	}

	return nil
}

// ValidateEmail performs the loose local@domain.tld check.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address: %q", email)
	}

	return nil
}

// ValidateColor accepts #rgb and #rrggbb hex colors. The empty string is valid.
func ValidateColor(color string) error {
	if color == "" || colorPattern.MatchString(color) {
		return nil
	}

	return fmt.Errorf("invalid color %q (expected #rgb or #rrggbb)", color)
}
