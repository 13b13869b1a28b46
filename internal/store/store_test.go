package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/types"
)

var (
	headerTemplate = types.SectionTemplate{
		ID: "header", Name: "Header", Category: "Navigation",
		DefaultProps: types.HeaderProps{Title: "Your Website"},
	}
	heroTemplate = types.SectionTemplate{
		ID: "hero", Name: "Hero Banner", Category: "Content",
		DefaultProps: types.HeroProps{Title: "Welcome", ButtonText: "Get Started"},
	}
	contentTemplate = types.SectionTemplate{
		ID: "content", Name: "Content Block", Category: "Content",
		DefaultProps: types.ContentProps{Title: "About Us", ImagePosition: "left"},
	}
	footerTemplate = types.SectionTemplate{
		ID: "footer", Name: "Footer", Category: "Navigation",
		DefaultProps: types.FooterProps{
			LinkGroups: []types.LinkGroup{{Title: "Company", Links: []types.NavLink{{Label: "About", URL: "#about"}}}},
		},
	}
)

// testClock returns strictly increasing times one second apart.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)

	return c.t
}

func sequentialIDs() func() string {
	n := 0

	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func newTestStore() *Store {
	return New(WithIDGenerator(sequentialIDs()), WithClock(newTestClock().Now))
}

func orderOf(sections []types.Section) []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}

	return ids
}

func assertDense(t *testing.T, s *Store) {
	t.Helper()
	for i, section := range s.GetOrderedSections() {
		assert.Equal(t, i, section.Order)
	}
}

func TestAddSectionsScenario(t *testing.T) {
	s := newTestStore()

	s.AddSection(headerTemplate)
	s.AddSection(heroTemplate)
	s.AddSection(contentTemplate)

	sections := s.GetOrderedSections()
	require.Len(t, sections, 3)
	assert.Equal(t, []types.SectionType{"header", "hero", "content"},
		[]types.SectionType{sections[0].Type, sections[1].Type, sections[2].Type})
	assertDense(t, s)

	s.ReorderSections(2, 0)
	sections = s.GetOrderedSections()
	assert.Equal(t, []types.SectionType{"content", "header", "hero"},
		[]types.SectionType{sections[0].Type, sections[1].Type, sections[2].Type})
	assertDense(t, s)
}

func TestAddSectionCopiesDefaults(t *testing.T) {
	s := newTestStore()
	footer := s.AddSection(footerTemplate)

	footer.Props.(types.FooterProps).LinkGroups[0].Title = "Mutated"
	assert.Equal(t, "Company", footerTemplate.DefaultProps.(types.FooterProps).LinkGroups[0].Title)

	stored, ok := s.GetSectionByID(footer.ID)
	require.True(t, ok)
	assert.Equal(t, "Company", stored.Props.(types.FooterProps).LinkGroups[0].Title)
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
}

func TestAddSectionUnknownTemplate(t *testing.T) {
	s := newTestStore()
	section := s.AddSection(types.SectionTemplate{ID: "gallery", Name: "Gallery", Category: "Media"})

	assert.Equal(t, types.SectionType("gallery"), section.Type)
	assert.IsType(t, types.GenericProps{}, section.Props)
}

func TestAddSectionSkipsCollidingIDs(t *testing.T) {
	s := New(WithIDGenerator(func() string { return "same" }))

	first := s.AddSection(heroTemplate)
	second := s.AddSection(heroTemplate)

	assert.Equal(t, "same", first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEmpty(t, second.ID)
}

func TestReorderCorrectness(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		expected []string
	}{
		{name: "forward", from: 0, to: 2, expected: []string{"s2", "s3", "s1", "s4"}},
		{name: "backward", from: 3, to: 0, expected: []string{"s4", "s1", "s2", "s3"}},
		{name: "adjacent", from: 1, to: 2, expected: []string{"s1", "s3", "s2", "s4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			for range 4 {
				s.AddSection(contentTemplate)
			}

			s.ReorderSections(tt.from, tt.to)

			assert.Equal(t, tt.expected, orderOf(s.GetOrderedSections()))
			assertDense(t, s)
		})
	}
}

func TestReorderBumpsEveryUpdatedAt(t *testing.T) {
	s := newTestStore()
	for range 3 {
		s.AddSection(heroTemplate)
	}
	before := s.GetOrderedSections()

	s.ReorderSections(0, 1)

	for _, section := range s.GetOrderedSections() {
		for _, old := range before {
			if old.ID == section.ID {
				assert.True(t, section.UpdatedAt.After(old.UpdatedAt), section.ID)
				assert.Equal(t, old.CreatedAt, section.CreatedAt)
			}
		}
	}
}

func TestReorderNoOpGuard(t *testing.T) {
	s := newTestStore()
	for range 3 {
		s.AddSection(heroTemplate)
	}
	before := s.GetOrderedSections()

	events := 0
	unsubscribe := s.Subscribe(func(Event) { events++ })
	defer unsubscribe()

	for _, pair := range [][2]int{{1, 1}, {-1, 0}, {0, 3}, {3, 0}, {0, -1}, {5, 7}} {
		s.ReorderSections(pair[0], pair[1])
	}

	assert.Equal(t, before, s.GetOrderedSections())
	assert.Zero(t, events)
}

func TestUpdateSection(t *testing.T) {
	s := newTestStore()
	hero := s.AddSection(heroTemplate)

	require.NoError(t, s.UpdateSection(hero.ID, map[string]any{"title": "New title"}))

	updated, ok := s.GetSectionByID(hero.ID)
	require.True(t, ok)
	props := updated.Props.(types.HeroProps)
	assert.Equal(t, "New title", props.Title)
	assert.Equal(t, "Get Started", props.ButtonText)
	assert.True(t, updated.UpdatedAt.After(hero.UpdatedAt))
	assert.Equal(t, hero.CreatedAt, updated.CreatedAt)
	assert.Equal(t, hero.Order, updated.Order)
	assert.Equal(t, hero.Type, updated.Type)
}

func TestUpdateSectionUnknownIDIsNoOp(t *testing.T) {
	s := newTestStore()
	s.AddSection(heroTemplate)
	before := s.State()

	events := 0
	s.Subscribe(func(Event) { events++ })

	assert.NoError(t, s.UpdateSection("missing", map[string]any{"title": "x"}))
	assert.Equal(t, before, s.State())
	assert.Zero(t, events)
}

func TestUpdateSectionWrongShape(t *testing.T) {
	s := newTestStore()
	hero := s.AddSection(heroTemplate)

	err := s.UpdateSection(hero.ID, map[string]any{"title": 42})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUpdate))
	assert.True(t, errors.HasCode(err, errors.ErrCodeUpdateFailed))

	unchanged, _ := s.GetSectionByID(hero.ID)
	assert.Equal(t, hero, unchanged)
}

func TestUpdateSectionExtraAndAliasedProps(t *testing.T) {
	s := newTestStore()
	hero := s.AddSection(heroTemplate)

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(t, s.UpdateSection(hero.ID, map[string]any{"ctaText": "Buy now", "badge": "Sale"}))

	updated, ok := s.GetSectionByID(hero.ID)
	require.True(t, ok)
	props, err := types.PropsToMap(updated.Props)
	require.NoError(t, err)
	assert.Equal(t, "Buy now", props["buttonText"])
	assert.Equal(t, "Sale", props["badge"])
	assert.Equal(t, "Welcome", props["title"])
	assert.NotContains(t, props, "ctaText")

	require.Len(t, events, 1)
	assert.Equal(t, EventSectionUpdated, events[0].Type)

	exported := s.ExportDesign()
	require.Len(t, exported.Sections, 1)
	assert.Equal(t, "Sale", exported.Sections[0].Props["badge"])
}

func TestDeleteSection(t *testing.T) {
	s := newTestStore()
	a := s.AddSection(headerTemplate)
	b := s.AddSection(heroTemplate)
	c := s.AddSection(contentTemplate)

	s.SelectSection(b.ID)
	s.DeleteSection(b.ID)

	assert.Equal(t, []string{a.ID, c.ID}, orderOf(s.GetOrderedSections()))
	assertDense(t, s)
	assert.Empty(t, s.State().SelectedSectionID)
	_, ok := s.GetSelectedSection()
	assert.False(t, ok)

	s.SelectSection(a.ID)
	s.DeleteSection(c.ID)
	assert.Equal(t, a.ID, s.State().SelectedSectionID)

	s.DeleteSection("missing")
	assert.Len(t, s.GetOrderedSections(), 1)
}

func TestDeleteDraggedSectionEndsDrag(t *testing.T) {
	s := newTestStore()
	a := s.AddSection(headerTemplate)
	s.SetDragging(true, a.ID)

	s.DeleteSection(a.ID)

	state := s.State()
	assert.False(t, state.IsDragging)
	assert.Empty(t, state.DraggedSectionID)
}

func TestSelectSection(t *testing.T) {
	s := newTestStore()
	a := s.AddSection(headerTemplate)

	s.SelectSection(a.ID)
	selected, ok := s.GetSelectedSection()
	require.True(t, ok)
	assert.Equal(t, a.ID, selected.ID)

	s.SelectSection("ghost")
	assert.Equal(t, "ghost", s.State().SelectedSectionID)
	_, ok = s.GetSelectedSection()
	assert.False(t, ok)

	s.SelectSection("")
	assert.Empty(t, s.State().SelectedSectionID)
}

func TestDragState(t *testing.T) {
	s := newTestStore()
	a := s.AddSection(headerTemplate)

	s.SetDragging(true, a.ID)
	state := s.State()
	assert.True(t, state.IsDragging)
	assert.Equal(t, a.ID, state.DraggedSectionID)

	s.SetDragging(false, a.ID)
	state = s.State()
	assert.False(t, state.IsDragging)
	assert.Empty(t, state.DraggedSectionID)

	s.SetDragging(true, a.ID)
	s.CancelDrag()
	state = s.State()
	assert.False(t, state.IsDragging)
	assert.Empty(t, state.DraggedSectionID)
}

func TestExportDesign(t *testing.T) {
	s := New(
		WithIDGenerator(sequentialIDs()),
		WithClock(newTestClock().Now),
		WithMetadata(types.Metadata{Title: "Landing", Tags: []string{"a"}}),
	)
	s.AddSection(headerTemplate)
	s.AddSection(heroTemplate)
	before := s.State()

	data := s.ExportDesign()

	assert.Equal(t, types.SchemaVersion, data.Version)
	assert.NotEmpty(t, data.CreatedAt)
	assert.Equal(t, "Landing", data.Metadata.Title)
	require.Len(t, data.Sections, 2)
	assert.Equal(t, "s1", data.Sections[0].ID)
	assert.Equal(t, "header", data.Sections[0].Type)
	assert.Equal(t, 1, data.Sections[1].Order)
	assert.Equal(t, "Welcome", data.Sections[1].Props["title"])
	assert.Equal(t, before, s.State())

	data.Metadata.Tags[0] = "mutated"
	assert.Equal(t, "a", s.ExportDesign().Metadata.Tags[0])
}

func TestExportDesignDefaultMetadata(t *testing.T) {
	data := New().ExportDesign()
	assert.Equal(t, types.DefaultMetadata(), data.Metadata)
	assert.Empty(t, data.Sections)
}

func TestImportDesignRoundTrip(t *testing.T) {
	s := newTestStore()
	s.AddSection(headerTemplate)
	s.AddSection(heroTemplate)
	s.AddSection(footerTemplate)
	s.ReorderSections(2, 0)
	before := s.GetOrderedSections()

	target := New(WithIDGenerator(sequentialIDs()))
	target.SelectSection("x")
	target.ImportDesign(s.ExportDesign())

	after := target.GetOrderedSections()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Type, after[i].Type)
		assert.Equal(t, before[i].Props, after[i].Props)
		assert.Equal(t, i, after[i].Order)
		assert.True(t, before[i].CreatedAt.Equal(after[i].CreatedAt))
	}
	assert.Empty(t, target.State().SelectedSectionID)
}

func TestImportDesignTolerance(t *testing.T) {
	clock := newTestClock()
	s := New(WithIDGenerator(sequentialIDs()), WithClock(clock.Now))
	s.SetDragging(true, "old")

	s.ImportDesign(types.ExportData{
		Version: types.SchemaVersion,
		Sections: []types.ExportedSection{
			{ID: "a", Type: "hero", Order: 7, Props: map[string]any{"title": "One"},
				CreatedAt: "2024-02-02T00:00:00.000Z", UpdatedAt: "2024-02-02T00:00:00.000Z"},
			{ID: "a", Type: "hero", Order: 7, Props: map[string]any{"title": 3, "description": "kept"},
				CreatedAt: "nope", UpdatedAt: "nope"},
			{ID: "", Type: "gallery", Props: map[string]any{"columns": float64(2)}},
		},
	})

	sections := s.GetOrderedSections()
	require.Len(t, sections, 3)

	assert.Equal(t, "a", sections[0].ID)
	assert.NotEqual(t, "a", sections[1].ID)
	assert.NotEmpty(t, sections[2].ID)
	assert.NotEqual(t, sections[1].ID, sections[2].ID)
	assertDense(t, s)

	assert.Equal(t, 2024, sections[0].CreatedAt.Year())
	assert.Equal(t, 2024, sections[1].CreatedAt.Year())
	assert.Equal(t, time.January, sections[1].CreatedAt.Month())
	assert.Equal(t, types.HeroProps{Description: "kept"}, sections[1].Props)
	assert.Equal(t, types.GenericProps{Type: "gallery", Values: map[string]any{"columns": float64(2)}}, sections[2].Props)

	state := s.State()
	assert.False(t, state.IsDragging)
	assert.Empty(t, state.DraggedSectionID)
}

func TestImportDesignKeepsUnknownProps(t *testing.T) {
	s := newTestStore()
	s.ImportDesign(types.ExportData{
		Version: types.SchemaVersion,
		Sections: []types.ExportedSection{
			{ID: "h", Type: "hero", Props: map[string]any{
				"title":   "Launch",
				"ctaText": "Join",
				"ctaLink": "#join",
				"layout":  "split",
			}},
		},
	})

	section, ok := s.GetSectionByID("h")
	require.True(t, ok)
	hero := section.Props.(types.HeroProps)
	assert.Equal(t, "Join", hero.ButtonText)
	assert.Equal(t, "#join", hero.ButtonURL)
	assert.Equal(t, map[string]any{"layout": "split"}, hero.Extra)

	exported := s.ExportDesign().Sections[0].Props
	assert.Equal(t, "Join", exported["buttonText"])
	assert.Equal(t, "split", exported["layout"])
}

func TestClearSections(t *testing.T) {
	s := newTestStore()
	a := s.AddSection(headerTemplate)
	s.SelectSection(a.ID)
	s.SetDragging(true, a.ID)

	events := 0
	s.Subscribe(func(Event) { events++ })

	s.ClearSections()
	assert.Equal(t, types.State{Sections: []types.Section{}}, s.State())
	assert.Equal(t, 1, events)

	s.ClearSections()
	assert.Equal(t, 1, events)
}

func TestSubscribeOrderAndSnapshots(t *testing.T) {
	s := newTestStore()

	var got []Event
	unsubscribe := s.Subscribe(func(e Event) {
		got = append(got, e)
		// Listeners may query the store.
		_ = s.GetOrderedSections()
	})

	a := s.AddSection(headerTemplate)
	b := s.AddSection(heroTemplate)
	s.SelectSection(b.ID)
	s.ReorderSections(1, 0)
	require.NoError(t, s.UpdateSection(a.ID, map[string]any{"title": "T"}))
	s.SetDragging(true, a.ID)
	s.CancelDrag()
	s.DeleteSection(a.ID)

	kinds := make([]EventType, len(got))
	for i, e := range got {
		kinds[i] = e.Type
	}
	assert.Equal(t, []EventType{
		EventSectionAdded, EventSectionAdded, EventSelectionChanged, EventSectionsReordered,
		EventSectionUpdated, EventDragChanged, EventDragChanged, EventSectionDeleted,
	}, kinds)

	assert.Len(t, got[0].State.Sections, 1)
	assert.Len(t, got[1].State.Sections, 2)
	assert.Equal(t, b.ID, got[3].State.Sections[0].ID)
	assert.Equal(t, a.ID, got[5].State.DraggedSectionID)

	unsubscribe()
	unsubscribe()
	s.ClearSections()
	assert.Len(t, got, 8)
}

func TestSnapshotsAreReadOnly(t *testing.T) {
	s := newTestStore()
	h := s.AddSection(headerTemplate)
	require.NoError(t, s.UpdateSection(h.ID, map[string]any{
		"navigationItems": []any{map[string]any{"label": "Home", "url": "#"}},
	}))

	snapshot := s.GetOrderedSections()
	snapshot[0].Props.(types.HeaderProps).NavigationItems[0].Label = "Hacked"
	snapshot[0].Order = 99

	fresh, _ := s.GetSectionByID(h.ID)
	assert.Equal(t, "Home", fresh.Props.(types.HeaderProps).NavigationItems[0].Label)
	assert.Equal(t, 0, fresh.Order)
}

func TestConcurrentActions(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				sec := s.AddSection(contentTemplate)
				s.ReorderSections(0, len(s.GetOrderedSections())-1)
				_ = s.UpdateSection(sec.ID, map[string]any{"title": "x"})
				s.SelectSection(sec.ID)
			}
		}()
	}
	wg.Wait()

	sections := s.GetOrderedSections()
	assert.Len(t, sections, 200)
	seen := map[string]bool{}
	for i, section := range sections {
		assert.Equal(t, i, section.Order)
		assert.False(t, seen[section.ID])
		seen[section.ID] = true
	}
}

func TestString(t *testing.T) {
	s := newTestStore()
	s.AddSection(heroTemplate)
	assert.Equal(t, `Store{sections: 1, selected: "", dragging: false}`, s.String())
}
