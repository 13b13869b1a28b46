// Package dragdrop turns pointer and touch gestures into reorder calls on
// the section store.
//
// Every way a gesture can end (drop, Escape, touch end or cancel, unmount)
// goes through the store's drag reset, so the dragging flag cannot stay set.
// A controller only resets drags it started itself.
package dragdrop

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/types"
)

// Config tunes gesture recognition and edge auto-scroll.
type Config struct {
	// TouchThreshold is the vertical travel, in pixels, before a touch becomes a drag
	TouchThreshold float64
	// ScrollBand is the distance from the viewport edge that triggers auto-scroll
	ScrollBand float64
	// ScrollStep is the pixels scrolled per tick
	ScrollStep float64
	// ScrollInterval is the tick period
	ScrollInterval time.Duration
}

// DefaultConfig returns the stock gesture settings.
func DefaultConfig() Config {
	return Config{
		TouchThreshold: 10,
		ScrollBand:     100,
		ScrollStep:     5,
		ScrollInterval: 16 * time.Millisecond,
	}
}

// Session is the in-flight pointer drag: the dragged section and its
// current logical index.
type Session struct {
	SectionID string `json:"sectionId"`
	Index     int    `json:"index"`
}

type touchSession struct {
	sectionID string
	index     int
	startY    float64
	dragging  bool
}

// Controller interprets one client's gestures.
type Controller struct {
	builder  store.Builder
	cfg      Config
	logger   logging.Logger
	scroller *AutoScroller

	mu      sync.Mutex
	pointer *Session
	touch   *touchSession
}

// New creates a controller. scroller may be nil when the client cannot
// auto-scroll.
func New(builder store.Builder, scroller Scroller, cfg Config, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}

	return &Controller{
		builder:  builder,
		cfg:      cfg,
		logger:   logger.WithComponent("dragdrop"),
		scroller: NewAutoScroller(scroller, cfg.ScrollStep, cfg.ScrollInterval),
	}
}

// BeginDrag starts a pointer drag of the section at index.
func (c *Controller) BeginDrag(sectionID string, index int) Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.builder.SetDragging(true, sectionID)
	c.pointer = &Session{SectionID: sectionID, Index: index}

	return *c.pointer
}

// Hover handles the pointer over the drop target at hoverIndex. The move is
// committed only once the pointer crosses the target's vertical midpoint in
// the direction of travel. A nil pointer or an empty rect means there is
// not enough information yet and nothing happens. Indices outside the
// current section list are ignored. It reports whether a reorder was
// committed.
func (c *Controller) Hover(hoverIndex int, rect Rect, pointer *Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pointer == nil || pointer == nil || rect.Height() <= 0 {
		return false
	}

	dragIndex := c.pointer.Index
	if dragIndex == hoverIndex || !c.inRange(dragIndex) || !c.inRange(hoverIndex) {
		return false
	}

	hoverMiddleY := rect.Height() / 2
	hoverClientY := pointer.Y - rect.Top

	// Downwards: wait until below the middle. Upwards: until above it.
	if dragIndex < hoverIndex && hoverClientY < hoverMiddleY {
		return false
	}
	if dragIndex > hoverIndex && hoverClientY > hoverMiddleY {
		return false
	}

	c.builder.ReorderSections(dragIndex, hoverIndex)
	c.advanceLocked(hoverIndex)

	return true
}

func (c *Controller) inRange(index int) bool {
	return index >= 0 && index < len(c.builder.GetOrderedSections())
}

// AdvanceDragIndex records that the dragged section now sits at index.
func (c *Controller) AdvanceDragIndex(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.advanceLocked(index)
}

func (c *Controller) advanceLocked(index int) {
	if c.pointer != nil {
		c.pointer.Index = index
	}
}

// Session returns the current pointer drag, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pointer == nil {
		return Session{}, false
	}

	return *c.pointer, true
}

// Drop completes a pointer drag over a target.
func (c *Controller) Drop() {
	c.EndDrag()
}

// EndDrag ends a pointer drag whether or not it was dropped on a target.
func (c *Controller) EndDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scroller.Stop()
	if c.pointer == nil {
		return
	}
	c.pointer = nil
	c.builder.SetDragging(false, "")
}

// TouchStart records where a single-finger touch on a section began.
func (c *Controller) TouchStart(sectionID string, index int, point Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.touch = &touchSession{sectionID: sectionID, index: index, startY: point.Y}
}

// TouchMove handles finger movement. hits lists the elements under the
// finger, topmost first. It reports whether the default scroll should be
// suppressed.
func (c *Controller) TouchMove(point Point, viewportHeight float64, hits []Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.touch
	if t == nil {
		return false
	}

	if !t.dragging {
		if math.Abs(point.Y-t.startY) <= c.cfg.TouchThreshold {
			return false
		}
		t.dragging = true
		c.builder.SetDragging(true, t.sectionID)
		c.logger.Debug(context.Background(), "Touch drag started", "section_id", t.sectionID)

		return true
	}

	c.autoScrollLocked(point.Y, viewportHeight)

	for _, hit := range hits {
		if hit.SectionID == "" || hit.SectionID == t.sectionID {
			continue
		}
		if hit.Index != t.index && c.inRange(hit.Index) && c.inRange(t.index) {
			c.builder.ReorderSections(t.index, hit.Index)
			t.index = hit.Index
		}
		break
	}

	return true
}

func (c *Controller) autoScrollLocked(y, viewportHeight float64) {
	switch {
	case y < c.cfg.ScrollBand:
		c.scroller.Start(-1)
	case viewportHeight > 0 && y > viewportHeight-c.cfg.ScrollBand:
		c.scroller.Start(1)
	default:
		c.scroller.Stop()
	}
}

// TouchEnd handles a touch ending anywhere in the document.
func (c *Controller) TouchEnd() {
	c.cancel("touch_end")
}

// TouchCancel handles a touch the browser cancelled.
func (c *Controller) TouchCancel() {
	c.cancel("touch_cancel")
}

// KeyDown handles a key press. Escape cancels this controller's drag; it
// reports whether the key was consumed.
func (c *Controller) KeyDown(key string) bool {
	if key != "Escape" || !c.Dragging() {
		return false
	}

	c.cancel("escape")

	return true
}

// Unmount tears the controller down. It is safe to call more than once.
func (c *Controller) Unmount() {
	c.cancel("unmount")
}

// Dragging reports whether this controller has a drag in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pointer != nil || (c.touch != nil && c.touch.dragging)
}

// AutoScrolling reports whether edge auto-scroll is running.
func (c *Controller) AutoScrolling() bool {
	return c.scroller.Running()
}

// Preview returns the section being dragged so a drag preview can be drawn.
func (c *Controller) Preview() (types.Section, bool) {
	state := c.builder.State()
	if !state.IsDragging || state.DraggedSectionID == "" {
		return types.Section{}, false
	}

	return c.builder.GetSectionByID(state.DraggedSectionID)
}

func (c *Controller) cancel(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scroller.Stop()
	wasActive := c.pointer != nil || (c.touch != nil && c.touch.dragging)
	c.pointer = nil
	c.touch = nil
	if !wasActive {
		return
	}

	c.builder.CancelDrag()
	c.logger.Debug(context.Background(), "Drag cancelled", "reason", reason)
}
