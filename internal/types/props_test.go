package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProps(t *testing.T) {
	tests := []struct {
		name     string
		typ      SectionType
		raw      map[string]any
		expected Props
		wantErr  bool
	}{
		{
			name:     "hero keeps unknown keys as extra",
			typ:      SectionTypeHero,
			raw:      map[string]any{"title": "Hi", "badge": "New"},
			expected: HeroProps{Title: "Hi", Extra: map[string]any{"badge": "New"}},
		},
		{
			name:     "hero cta aliases",
			typ:      SectionTypeHero,
			raw:      map[string]any{"title": "Hi", "ctaText": "Buy", "ctaLink": "#buy"},
			expected: HeroProps{Title: "Hi", ButtonText: "Buy", ButtonURL: "#buy"},
		},
		{
			name:     "current name wins over alias",
			typ:      SectionTypeHero,
			raw:      map[string]any{"buttonText": "Go", "ctaText": "Buy"},
			expected: HeroProps{ButtonText: "Go"},
		},
		{
			name: "header nested links",
			typ:  SectionTypeHeader,
			raw: map[string]any{
				"title":           "Site",
				"navigationItems": []any{map[string]any{"label": "Home", "url": "#"}},
			},
			expected: HeaderProps{Title: "Site", NavigationItems: []NavLink{{Label: "Home", URL: "#"}}},
		},
		{
			name:    "wrong shape",
			typ:     SectionTypeContent,
			raw:     map[string]any{"title": []any{"x"}},
			wantErr: true,
		},
		{
			name:     "unknown type keeps everything",
			typ:      "gallery",
			raw:      map[string]any{"columns": float64(3)},
			expected: GenericProps{Type: "gallery", Values: map[string]any{"columns": float64(3)}},
		},
		{
			name:     "nil raw",
			typ:      SectionTypeFooter,
			raw:      nil,
			expected: FooterProps{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeProps(tt.typ, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecodePropsLenient(t *testing.T) {
	props, dropped := DecodePropsLenient(SectionTypeHero, map[string]any{
		"title":      "Kept",
		"buttonText": 42,
		"buttonUrl":  "#go",
	})

	assert.Equal(t, []string{"buttonText"}, dropped)
	assert.Equal(t, HeroProps{Title: "Kept", ButtonURL: "#go"}, props)
}

func TestPropsToMap(t *testing.T) {
	m, err := PropsToMap(ContentProps{Title: "T", Content: "C", ImagePosition: "left"})
	require.NoError(t, err)
	assert.Equal(t, "T", m["title"])
	assert.Equal(t, "", m["imageUrl"])
	assert.Equal(t, "left", m["imagePosition"])
	assert.Contains(t, m, "backgroundColor")

	empty, err := PropsToMap(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	g := GenericProps{Type: "x", Values: map[string]any{"a": "b"}}
	gm, err := PropsToMap(g)
	require.NoError(t, err)
	gm["a"] = "changed"
	assert.Equal(t, "b", g.Values["a"])
}

func TestMergeProps(t *testing.T) {
	base := HeaderProps{
		Title:           "Old",
		NavigationItems: []NavLink{{Label: "A", URL: "#a"}, {Label: "B", URL: "#b"}},
	}

	merged, err := MergeProps(base, map[string]any{
		"title":           "New",
		"navigationItems": []any{map[string]any{"label": "C", "url": "#c"}},
	})
	require.NoError(t, err)

	header := merged.(HeaderProps)
	assert.Equal(t, "New", header.Title)
	assert.Equal(t, []NavLink{{Label: "C", URL: "#c"}}, header.NavigationItems)
	assert.Equal(t, "Old", base.Title)

	_, err = MergeProps(base, map[string]any{"title": map[string]any{}})
	assert.Error(t, err)

	_, err = MergeProps(nil, map[string]any{})
	assert.Error(t, err)
}

func TestExtraPropsRoundTrip(t *testing.T) {
	raw := map[string]any{
		"title":    "Site",
		"sticky":   true,
		"taglines": []any{"a", "b"},
	}
	props, err := DecodeProps(SectionTypeHeader, raw)
	require.NoError(t, err)

	m, err := PropsToMap(props)
	require.NoError(t, err)
	assert.Equal(t, "Site", m["title"])
	assert.Equal(t, true, m["sticky"])
	assert.Equal(t, []any{"a", "b"}, m["taglines"])
	assert.Contains(t, m, "logoUrl")

	clone := props.Clone().(HeaderProps)
	clone.Extra["taglines"].([]any)[0] = "changed"
	assert.Equal(t, "a", props.(HeaderProps).Extra["taglines"].([]any)[0])

	merged, err := MergeProps(props, map[string]any{"sticky": false, "title": "New"})
	require.NoError(t, err)
	header := merged.(HeaderProps)
	assert.Equal(t, "New", header.Title)
	assert.Equal(t, map[string]any{"sticky": false, "taglines": []any{"a", "b"}}, header.Extra)

	// A defined field always beats an extra of the same name.
	data, err := json.Marshal(ContentProps{Title: "T", Extra: map[string]any{"title": "shadow"}})
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "T", out["title"])
}

func TestMergePropsAliases(t *testing.T) {
	merged, err := MergeProps(HeroProps{Title: "Hi", ButtonText: "Get Started"}, map[string]any{
		"ctaText": "Buy now",
		"ctaLink": "#buy",
	})
	require.NoError(t, err)

	hero := merged.(HeroProps)
	assert.Equal(t, "Buy now", hero.ButtonText)
	assert.Equal(t, "#buy", hero.ButtonURL)
	assert.Nil(t, hero.Extra)
}

func TestExportSectionAndParsedDates(t *testing.T) {
	now := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	exported, err := ExportSection(Section{
		ID: "h", Type: SectionTypeHeader, Props: HeaderProps{Title: "x"},
		Order: 0, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "header", exported.Type)
	assert.Equal(t, "2024-05-05T00:00:00.000Z", exported.CreatedAt)

	fallback := now.Add(time.Hour)
	exported.UpdatedAt = "not a date"
	created, updated, createdOK, updatedOK := exported.ParsedDates(fallback)
	assert.True(t, createdOK)
	assert.False(t, updatedOK)
	assert.True(t, created.Equal(now))
	assert.Equal(t, fallback, updated)
}

func TestDefaultMetadata(t *testing.T) {
	md := DefaultMetadata()
	assert.Equal(t, "Website Design", md.Title)
	assert.Equal(t, "Created with Mini Website Builder", md.Description)
}
