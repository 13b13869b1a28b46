// Package types provides the data model shared by the page builder packages.
// This package contains shared types to avoid circular dependencies between packages.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the version string written into every export.
const SchemaVersion = "1.0.0"

// TimeLayout is the ISO-8601 layout used for every date on the wire
// (millisecond precision, UTC).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// SectionType identifies which renderer and props variant a section uses.
type SectionType string

const (
	SectionTypeHeader  SectionType = "header"
	SectionTypeHero    SectionType = "hero"
	SectionTypeContent SectionType = "content"
	SectionTypeFooter  SectionType = "footer"
)

// KnownSectionTypes lists the section types with a typed props variant.
var KnownSectionTypes = []SectionType{
	SectionTypeHeader,
	SectionTypeHero,
	SectionTypeContent,
	SectionTypeFooter,
}

// Known reports whether t has a typed props variant.
func (t SectionType) Known() bool {
	switch t {
	case SectionTypeHeader, SectionTypeHero, SectionTypeContent, SectionTypeFooter:
		return true
	}

	return false
}

// Section is one block of the page being built.
type Section struct {
	// ID is unique among the sections of a design and never changes
	ID string
	// Type selects the renderer and the props variant
	Type SectionType
	// Props holds the type-specific content of the section
	Props Props
	// Order is the section's position; a design's orders are always 0..n-1
	Order int
	// CreatedAt is set once when the section is added
	CreatedAt time.Time
	// UpdatedAt moves forward on every props update
	UpdatedAt time.Time
}

type sectionJSON struct {
	ID        string         `json:"id"`
	Type      SectionType    `json:"type"`
	Props     map[string]any `json:"props"`
	Order     int            `json:"order"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

// MarshalJSON encodes the section with ISO-8601 dates and a plain props object.
func (s Section) MarshalJSON() ([]byte, error) {
	props, err := PropsToMap(s.Props)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", s.ID, err)
	}

	return json.Marshal(sectionJSON{
		ID:        s.ID,
		Type:      s.Type,
		Props:     props,
		Order:     s.Order,
		CreatedAt: FormatTime(s.CreatedAt),
		UpdatedAt: FormatTime(s.UpdatedAt),
	})
}

// UnmarshalJSON decodes props according to the section's type.
func (s *Section) UnmarshalJSON(data []byte) error {
	var aux sectionJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	props, err := DecodeProps(aux.Type, aux.Props)
	if err != nil {
		return fmt.Errorf("section %s: %w", aux.ID, err)
	}

	created, err := ParseTime(aux.CreatedAt)
	if err != nil {
		return fmt.Errorf("section %s: createdAt: %w", aux.ID, err)
	}
	updated, err := ParseTime(aux.UpdatedAt)
	if err != nil {
		return fmt.Errorf("section %s: updatedAt: %w", aux.ID, err)
	}

	*s = Section{
		ID:        aux.ID,
		Type:      aux.Type,
		Props:     props,
		Order:     aux.Order,
		CreatedAt: created,
		UpdatedAt: updated,
	}

	return nil
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	c := s
	if s.Props != nil {
		c.Props = s.Props.Clone()
	}

	return c
}

// SectionTemplate is a catalog entry from which sections are created.
type SectionTemplate struct {
	// ID doubles as the type of sections created from the template
	ID string `json:"id" yaml:"id"`
	// Name is the human-readable label shown in the library
	Name string `json:"name" yaml:"name"`
	// Category groups templates in the library (e.g. "Navigation", "Content")
	Category string `json:"category" yaml:"category"`
	// Description explains what the section is for
	Description string `json:"description" yaml:"description"`
	// DefaultProps seeds the props of every section created from the template
	DefaultProps Props `json:"defaultProps" yaml:"-"`
	// Thumbnail is an optional preview image path
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// SectionType returns the type of sections created from the template.
func (t SectionTemplate) SectionType() SectionType {
	return SectionType(t.ID)
}

// UnmarshalJSON decodes default props according to the template id.
func (t *SectionTemplate) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID           string         `json:"id"`
		Name         string         `json:"name"`
		Category     string         `json:"category"`
		Description  string         `json:"description"`
		DefaultProps map[string]any `json:"defaultProps"`
		Thumbnail    string         `json:"thumbnail"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	props, err := DecodeProps(SectionType(aux.ID), aux.DefaultProps)
	if err != nil {
		return fmt.Errorf("template %s: %w", aux.ID, err)
	}

	*t = SectionTemplate{
		ID:           aux.ID,
		Name:         aux.Name,
		Category:     aux.Category,
		Description:  aux.Description,
		DefaultProps: props,
		Thumbnail:    aux.Thumbnail,
	}

	return nil
}

// State is a read-only snapshot of the builder, delivered to subscribers.
type State struct {
	Sections          []Section `json:"sections"`
	SelectedSectionID string    `json:"selectedSectionId,omitempty"`
	IsDragging        bool      `json:"isDragging"`
	DraggedSectionID  string    `json:"draggedSectionId,omitempty"`
}

// FormatTime renders t in the wire layout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(TimeLayout)
}

// ParseTime parses an ISO-8601 timestamp. An empty string yields the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, s)
}
