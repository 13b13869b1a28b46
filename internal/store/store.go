// Package store holds the section store: the single owner of the page's
// sections, the current selection and the drag status.
//
// Caller-input problems (unknown ids, out-of-range indices) are silent
// no-ops. Actions are serialized and subscribers are notified synchronously,
// in the order the mutations were applied.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/types"
)

// Builder is the action and query surface of the store.
type Builder interface {
	AddSection(t types.SectionTemplate) types.Section
	UpdateSection(id string, patch map[string]any) error
	DeleteSection(id string)
	ReorderSections(from, to int)
	SelectSection(id string)
	SetDragging(dragging bool, sectionID string)
	CancelDrag()
	ExportDesign() types.ExportData
	ImportDesign(data types.ExportData)
	ClearSections()

	GetSectionByID(id string) (types.Section, bool)
	GetOrderedSections() []types.Section
	GetSelectedSection() (types.Section, bool)
	State() types.State
	Subscribe(fn Listener) (unsubscribe func())
}

var _ Builder = (*Store)(nil)

// Store is the Builder implementation.
type Store struct {
	// actionMu serializes actions and is held while listeners run.
	actionMu sync.Mutex
	// mu guards the fields below it so listeners can read.
	mu         sync.RWMutex
	sections   []types.Section // sections[i].Order == i
	selectedID string
	dragging   bool
	draggedID  string

	listenersMu  sync.Mutex
	listeners    map[uint64]Listener
	nextListener uint64

	newID    func() string
	now      func() time.Time
	logger   logging.Logger
	metadata types.Metadata
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		listeners: make(map[uint64]Listener),
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    logging.Nop(),
		metadata:  types.DefaultMetadata(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddSection appends a new section seeded from the template's default props.
func (s *Store) AddSection(t types.SectionTemplate) types.Section {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	props := t.DefaultProps
	if props == nil {
		props = types.NewProps(t.SectionType())
	}

	s.mu.Lock()
	now := s.now()
	section := types.Section{
		ID:        s.uniqueIDLocked(),
		Type:      t.SectionType(),
		Props:     props.Clone(),
		Order:     len(s.sections),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sections = append(s.sections, section)
	s.mu.Unlock()

	s.emit(EventSectionAdded, section.ID)

	return section.Clone()
}

// UpdateSection shallow-merges patch into the section's props and bumps
// UpdatedAt. An unknown id is a no-op. Keys the props variant does not
// define are kept as extra props. A value of the wrong shape for a defined
// key returns an update error and changes nothing.
func (s *Store) UpdateSection(id string, patch map[string]any) error {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	merged, err := types.MergeProps(s.sections[idx].Props, patch)
	if err != nil {
		s.mu.Unlock()
		return errors.NewUpdateError(errors.ErrCodeUpdateFailed, "failed to apply property update", err).
			WithSection(id)
	}
	s.sections[idx].Props = merged
	s.sections[idx].UpdatedAt = s.now()
	s.mu.Unlock()

	s.emit(EventSectionUpdated, id)

	return nil
}

// DeleteSection removes a section, renumbers the rest and clears the
// selection if it pointed at the removed section.
func (s *Store) DeleteSection(id string) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	s.sections = append(s.sections[:idx], s.sections[idx+1:]...)
	s.renumberLocked(s.now())
	if s.selectedID == id {
		s.selectedID = ""
	}
	if s.draggedID == id {
		s.dragging = false
		s.draggedID = ""
	}
	s.mu.Unlock()

	s.emit(EventSectionDeleted, id)
}

// ReorderSections moves the section at from to to with splice semantics.
// Equal or out-of-range indices are a no-op.
func (s *Store) ReorderSections(from, to int) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.mu.Lock()
	n := len(s.sections)
	if from == to || from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		return
	}

	moved := s.sections[from]
	s.sections = append(s.sections[:from], s.sections[from+1:]...)
	s.sections = append(s.sections[:to], append([]types.Section{moved}, s.sections[to:]...)...)
	s.renumberLocked(s.now())
	s.mu.Unlock()

	s.emit(EventSectionsReordered, moved.ID)
}

// SelectSection sets the selection without checking that id exists.
// The empty string clears it.
func (s *Store) SelectSection(id string) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.mu.Lock()
	if s.selectedID == id {
		s.mu.Unlock()
		return
	}
	s.selectedID = id
	s.mu.Unlock()

	s.emit(EventSelectionChanged, id)
}

// SetDragging sets both drag flags. The dragged id is cleared whenever
// dragging is false.
func (s *Store) SetDragging(dragging bool, sectionID string) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	if !dragging {
		sectionID = ""
	}
	s.setDragLocked(dragging, sectionID)
}

// CancelDrag forces the idle drag state.
func (s *Store) CancelDrag() {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.setDragLocked(false, "")
}

// setDragLocked requires actionMu.
func (s *Store) setDragLocked(dragging bool, sectionID string) {
	s.mu.Lock()
	if s.dragging == dragging && s.draggedID == sectionID {
		s.mu.Unlock()
		return
	}
	s.dragging = dragging
	s.draggedID = sectionID
	s.mu.Unlock()

	s.emit(EventDragChanged, sectionID)
}

// ExportDesign projects the current sections into an export document.
func (s *Store) ExportDesign() types.ExportData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := types.ExportData{
		Version:   types.SchemaVersion,
		CreatedAt: types.FormatTime(s.now()),
		Sections:  make([]types.ExportedSection, 0, len(s.sections)),
		Metadata:  s.metadata,
	}
	data.Metadata.Tags = append([]string(nil), s.metadata.Tags...)

	for _, section := range s.sections {
		exported, err := types.ExportSection(section)
		if err != nil {
			s.logger.Error(context.Background(), err, "Failed to export section props", "section_id", section.ID)
			exported = types.ExportedSection{
				ID:        section.ID,
				Type:      string(section.Type),
				Props:     map[string]any{},
				Order:     section.Order,
				CreatedAt: types.FormatTime(section.CreatedAt),
				UpdatedAt: types.FormatTime(section.UpdatedAt),
			}
		}
		data.Sections = append(data.Sections, exported)
	}

	return data
}

// ImportDesign replaces every section with the imported ones, ordered by
// their position in data.Sections, and resets selection and drag state.
//
// Per-section anomalies do not abort the import: dates that fail to parse
// become the current time, empty or duplicate ids are replaced with fresh
// ones, and props keys whose value does not fit the section type are
// dropped. Each substitution is logged as a warning. Keys the section type
// does not define are kept.
func (s *Store) ImportDesign(data types.ExportData) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	ctx := context.Background()
	now := s.now()
	seen := make(map[string]struct{}, len(data.Sections))
	sections := make([]types.Section, 0, len(data.Sections))

	for i, in := range data.Sections {
		id := in.ID
		if _, dup := seen[id]; id == "" || dup {
			id = s.freshID(seen)
			s.logger.Warn(ctx, nil, "Replaced missing or duplicate section id",
				"index", i, "original_id", in.ID, "new_id", id)
		}
		seen[id] = struct{}{}

		created, updated, createdOK, updatedOK := in.ParsedDates(now)
		if !createdOK || !updatedOK {
			s.logger.Warn(ctx, nil, "Substituted current time for unparseable section dates",
				"section_id", id, "created_at", in.CreatedAt, "updated_at", in.UpdatedAt)
		}

		sectionType := types.SectionType(in.Type)
		props, dropped := types.DecodePropsLenient(sectionType, in.Props)
		if len(dropped) > 0 {
			s.logger.Warn(ctx, nil, "Dropped section props with unexpected shape",
				"section_id", id, "keys", dropped)
		}

		sections = append(sections, types.Section{
			ID:        id,
			Type:      sectionType,
			Props:     props,
			Order:     i,
			CreatedAt: created,
			UpdatedAt: updated,
		})
	}

	s.mu.Lock()
	s.sections = sections
	s.selectedID = ""
	s.dragging = false
	s.draggedID = ""
	s.mu.Unlock()

	s.emit(EventDesignImported, "")
}

// ClearSections removes every section and resets selection and drag state.
func (s *Store) ClearSections() {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.mu.Lock()
	if len(s.sections) == 0 && s.selectedID == "" && !s.dragging {
		s.mu.Unlock()
		return
	}
	s.sections = nil
	s.selectedID = ""
	s.dragging = false
	s.draggedID = ""
	s.mu.Unlock()

	s.emit(EventSectionsCleared, "")
}

// GetSectionByID returns a copy of the section with the given id.
func (s *Store) GetSectionByID(id string) (types.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return types.Section{}, false
	}

	return s.sections[idx].Clone(), true
}

// GetOrderedSections returns copies of the sections sorted by order.
func (s *Store) GetOrderedSections() []types.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// GetSelectedSection returns the selected section, if it exists.
func (s *Store) GetSelectedSection() (types.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selectedID == "" {
		return types.Section{}, false
	}
	idx := s.indexLocked(s.selectedID)
	if idx < 0 {
		return types.Section{}, false
	}

	return s.sections[idx].Clone(), true
}

// State returns a snapshot of the whole store.
func (s *Store) State() types.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stateLocked()
}

// Subscribe registers fn for every subsequent event.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	var once sync.Once

	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// emit requires actionMu and must not hold mu.
func (s *Store) emit(eventType EventType, sectionID string) {
	s.mu.RLock()
	event := Event{Type: eventType, SectionID: sectionID, State: s.stateLocked()}
	s.mu.RUnlock()

	s.listenersMu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (s *Store) stateLocked() types.State {
	return types.State{
		Sections:          s.snapshotLocked(),
		SelectedSectionID: s.selectedID,
		IsDragging:        s.dragging,
		DraggedSectionID:  s.draggedID,
	}
}

func (s *Store) snapshotLocked() []types.Section {
	out := make([]types.Section, len(s.sections))
	for i, section := range s.sections {
		out[i] = section.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })

	return out
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sections {
		if s.sections[i].ID == id {
			return i
		}
	}

	return -1
}

func (s *Store) renumberLocked(now time.Time) {
	for i := range s.sections {
		s.sections[i].Order = i
		s.sections[i].UpdatedAt = now
	}
}

func (s *Store) uniqueIDLocked() string {
	seen := make(map[string]struct{}, len(s.sections))
	for _, section := range s.sections {
		seen[section.ID] = struct{}{}
	}

	return s.freshID(seen)
}

// freshID draws ids until one is not in seen. A generator that keeps
// colliding falls back to a uuid.
func (s *Store) freshID(seen map[string]struct{}) string {
	for range 8 {
		id := s.newID()
		if _, taken := seen[id]; id != "" && !taken {
			return id
		}
	}

	for {
		id := uuid.NewString()
		if _, taken := seen[id]; !taken {
			return id
		}
	}
}

// String implements fmt.Stringer for debugging.
func (s *Store) String() string {
	state := s.State()

	return fmt.Sprintf("Store{sections: %d, selected: %q, dragging: %v}",
		len(state.Sections), state.SelectedSectionID, state.IsDragging)
}
