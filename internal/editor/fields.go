// Package editor implements the property editor buffer that sits between a
// form and the section store: per-type field definitions, field validation
// and a debounced commit with rollback.
package editor

import (
	"fmt"
	"strings"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/types"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

// FieldKind selects the input control used for a field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindURL      FieldKind = "url"
	KindImage    FieldKind = "image"
	KindColor    FieldKind = "color"
	KindSelect   FieldKind = "select"
)

// SelectOption is one choice of a select field.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldConfig describes one editable prop.
type FieldConfig struct {
	Key         string         `json:"key"`
	Label       string         `json:"label"`
	Kind        FieldKind      `json:"type"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
	Required    bool           `json:"required,omitempty"`

	// Validate runs after the required check on non-empty values.
	Validate func(value string) error `json:"-"`
}

func baseFields() []FieldConfig {
	return []FieldConfig{
		{Key: "backgroundColor", Label: "Background Color", Kind: KindColor, Placeholder: "#ffffff", Validate: validateColor},
		{Key: "textColor", Label: "Text Color", Kind: KindColor, Placeholder: "#000000", Validate: validateColor},
	}
}

// FieldsFor returns the editable fields for a section type. Unknown types
// only get the color fields.
func FieldsFor(t types.SectionType) []FieldConfig {
	var fields []FieldConfig

	switch t {
	case types.SectionTypeHeader:
		fields = []FieldConfig{
			{Key: "title", Label: "Site Title", Kind: KindText, Placeholder: "Your Website", Required: true},
			{Key: "logoUrl", Label: "Logo URL", Kind: KindImage, Placeholder: "https://example.com/logo.png", Validate: validateImage},
		}
	case types.SectionTypeHero:
		fields = []FieldConfig{
			{Key: "title", Label: "Title", Kind: KindText, Placeholder: "Welcome to Our Website", Required: true},
			{Key: "subtitle", Label: "Subtitle", Kind: KindText, Placeholder: "Create amazing experiences"},
			{Key: "description", Label: "Description", Kind: KindTextarea, Placeholder: "Tell your story here..."},
			{Key: "buttonText", Label: "Button Text", Kind: KindText, Placeholder: "Get Started"},
			{Key: "buttonUrl", Label: "Button URL", Kind: KindURL, Placeholder: "https://example.com", Validate: validateLink},
			{Key: "backgroundImage", Label: "Background Image", Kind: KindImage, Placeholder: "https://example.com/hero-bg.jpg", Validate: validateImage},
		}
	case types.SectionTypeContent:
		fields = []FieldConfig{
			{Key: "title", Label: "Title", Kind: KindText, Placeholder: "Section Title", Required: true},
			{Key: "content", Label: "Content", Kind: KindTextarea, Placeholder: "Enter your content here...", Required: true},
			{Key: "imageUrl", Label: "Image URL", Kind: KindImage, Placeholder: "https://example.com/image.jpg", Validate: validateImage},
			{
				Key:   "imagePosition",
				Label: "Image Position",
				Kind:  KindSelect,
				Options: []SelectOption{
					{Value: "left", Label: "Left"},
					{Value: "right", Label: "Right"},
					{Value: "top", Label: "Top"},
					{Value: "bottom", Label: "Bottom"},
				},
				Validate: validateImagePosition,
			},
		}
	case types.SectionTypeFooter:
		fields = []FieldConfig{
			{Key: "copyright", Label: "Copyright Text", Kind: KindText, Placeholder: "© 2024 Your Company. All rights reserved."},
		}
	}

	return append(fields, baseFields()...)
}

// ValidateField checks value against the field named key. Keys without a
// field config always pass.
func ValidateField(fields []FieldConfig, key string, value any) *errors.FieldValidationError {
	var cfg *FieldConfig
	for i := range fields {
		if fields[i].Key == key {
			cfg = &fields[i]
			break
		}
	}
	if cfg == nil {
		return nil
	}

	str := stringValue(value)
	if cfg.Required && strings.TrimSpace(str) == "" {
		return errors.NewFieldValidationError(key, value, cfg.Label+" is required")
	}
	if cfg.Validate == nil || str == "" {
		return nil
	}
	if err := cfg.Validate(str); err != nil {
		return errors.NewFieldValidationError(key, value, err.Error())
	}

	return nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func validateImage(value string) error {
	return validation.ValidateImageURL(value)
}

func validateLink(value string) error {
	if validation.ValidatePropertyURL(value) != nil {
		return fmt.Errorf("Invalid URL format")
	}

	return nil
}

func validateColor(value string) error {
	if validation.ValidateColor(value) != nil {
		return fmt.Errorf("Invalid color (expected #rgb or #rrggbb)")
	}

	return nil
}

func validateImagePosition(value string) error {
	switch value {
	case "left", "right", "top", "bottom":
		return nil
	}

	return fmt.Errorf("Image position must be left, right, top or bottom")
}
