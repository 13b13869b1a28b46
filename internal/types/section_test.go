package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionTypeKnown(t *testing.T) {
	for _, st := range KnownSectionTypes {
		assert.True(t, st.Known(), st)
	}
	assert.False(t, SectionType("gallery").Known())
	assert.False(t, SectionType("").Known())
}

func TestSectionJSONRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 30, 0, 123_000_000, time.UTC)
	section := Section{
		ID:   "s1",
		Type: SectionTypeHeader,
		Props: HeaderProps{
			Title:           "Acme",
			NavigationItems: []NavLink{{Label: "Home", URL: "#"}},
			Colors:          Colors{BackgroundColor: "#fff", TextColor: "#000"},
		},
		Order:     2,
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}

	data, err := json.Marshal(section)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2024-03-01T10:30:00.123Z", raw["createdAt"])
	assert.Equal(t, "header", raw["type"])
	props := raw["props"].(map[string]any)
	assert.Equal(t, "Acme", props["title"])
	assert.Equal(t, "#fff", props["backgroundColor"])

	var decoded Section
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, section.ID, decoded.ID)
	assert.Equal(t, section.Props, decoded.Props)
	assert.True(t, section.CreatedAt.Equal(decoded.CreatedAt))
	assert.True(t, section.UpdatedAt.Equal(decoded.UpdatedAt))
}

func TestSectionUnmarshalRejectsWrongShape(t *testing.T) {
	var s Section
	err := json.Unmarshal([]byte(`{"id":"x","type":"hero","props":{"title":5},"order":0}`), &s)
	assert.Error(t, err)
}

func TestSectionCloneIsDeep(t *testing.T) {
	original := Section{
		ID:   "f",
		Type: SectionTypeFooter,
		Props: FooterProps{
			LinkGroups: []LinkGroup{{Title: "Company", Links: []NavLink{{Label: "About", URL: "#about"}}}},
		},
	}

	clone := original.Clone()
	clone.Props.(FooterProps).LinkGroups[0].Links[0].Label = "Changed"

	assert.Equal(t, "About", original.Props.(FooterProps).LinkGroups[0].Links[0].Label)
}

func TestGenericPropsCloneIsDeep(t *testing.T) {
	original := GenericProps{Type: "gallery", Values: map[string]any{
		"images": []any{map[string]any{"src": "a.png"}},
	}}

	clone := original.Clone().(GenericProps)
	clone.Values["images"].([]any)[0].(map[string]any)["src"] = "b.png"

	assert.Equal(t, "a.png", original.Values["images"].([]any)[0].(map[string]any)["src"])
	assert.Equal(t, []string{"images"}, original.Keys())
}

func TestSectionTemplateUnmarshal(t *testing.T) {
	var tpl SectionTemplate
	data := `{"id":"content","name":"Content Block","category":"Content","defaultProps":{"title":"About","imagePosition":"left"}}`
	require.NoError(t, json.Unmarshal([]byte(data), &tpl))

	assert.Equal(t, SectionTypeContent, tpl.SectionType())
	assert.Equal(t, ContentProps{Title: "About", ImagePosition: "left"}, tpl.DefaultProps)
}

func TestFormatAndParseTime(t *testing.T) {
	assert.Equal(t, "", FormatTime(time.Time{}))

	zero, err := ParseTime("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	local := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "2024-01-02T02:04:05.000Z", FormatTime(local))

	parsed, err := ParseTime("2024-01-02T02:04:05Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(local))

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
