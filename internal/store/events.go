package store

import "github.com/conneroisu/pagebuilder/internal/types"

// EventType names the action that changed the state.
type EventType string

const (
	EventSectionAdded      EventType = "section_added"
	EventSectionUpdated    EventType = "section_updated"
	EventSectionDeleted    EventType = "section_deleted"
	EventSectionsReordered EventType = "sections_reordered"
	EventSelectionChanged  EventType = "selection_changed"
	EventDragChanged       EventType = "drag_changed"
	EventDesignImported    EventType = "design_imported"
	EventSectionsCleared   EventType = "sections_cleared"
)

// Event is delivered to every subscriber after a mutation.
type Event struct {
	Type EventType `json:"type"`
	// SectionID is the section the action targeted, when there is one
	SectionID string `json:"sectionId,omitempty"`
	// State is the snapshot right after the mutation
	State types.State `json:"state"`
}

// Listener receives events synchronously, in mutation order. A listener may
// query the store but must not call its actions from the same goroutine.
type Listener func(Event)
