package types

import "time"

// ExportData is the JSON document exchanged by export and import.
type ExportData struct {
	Version   string            `json:"version"`
	CreatedAt string            `json:"createdAt"`
	Sections  []ExportedSection `json:"sections"`
	Metadata  Metadata          `json:"metadata"`
}

// ExportedSection is the wire form of a Section. Dates stay strings so that a
// payload with unparseable dates can still pass the schema and be repaired on
// import.
type ExportedSection struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Props     map[string]any `json:"props"`
	Order     int            `json:"order"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

// Metadata describes the design as a whole. Every field is optional.
type Metadata struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DefaultMetadata is attached to exports when no metadata was configured.
func DefaultMetadata() Metadata {
	return Metadata{
		Title:       "Website Design",
		Description: "Created with Mini Website Builder",
	}
}

// ExportSection converts s to its wire form.
func ExportSection(s Section) (ExportedSection, error) {
	props, err := PropsToMap(s.Props)
	if err != nil {
		return ExportedSection{}, err
	}

	return ExportedSection{
		ID:        s.ID,
		Type:      string(s.Type),
		Props:     props,
		Order:     s.Order,
		CreatedAt: FormatTime(s.CreatedAt),
		UpdatedAt: FormatTime(s.UpdatedAt),
	}, nil
}

// ParsedDates returns the section's dates, substituting fallback for any
// date that is missing or does not parse. The booleans report substitutions.
func (e ExportedSection) ParsedDates(fallback time.Time) (created, updated time.Time, createdOK, updatedOK bool) {
	created, createdOK = parseOr(e.CreatedAt, fallback)
	updated, updatedOK = parseOr(e.UpdatedAt, fallback)

	return created, updated, createdOK, updatedOK
}

func parseOr(s string, fallback time.Time) (time.Time, bool) {
	t, err := ParseTime(s)
	if err != nil || t.IsZero() {
		return fallback, false
	}

	return t, true
}
