package editor

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/types"
)

// DefaultDelay is the debounce applied to property edits.
const DefaultDelay = 300 * time.Millisecond

// UpdateFailedMessage is shown after a failed commit has been rolled back.
const UpdateFailedMessage = "Failed to save changes. Reverted to last saved state."

// State is a point-in-time view of a buffer.
type State struct {
	SectionID   string            `json:"sectionId"`
	Type        string            `json:"type"`
	Values      map[string]any    `json:"values"`
	Dirty       bool              `json:"dirty"`
	Errors      map[string]string `json:"errors,omitempty"`
	UpdateError string            `json:"updateError,omitempty"`
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(b *Buffer) {
		if d > 0 {
			b.delay = d
		}
	}
}

// WithLogger sets the buffer logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger.WithComponent("editor")
		}
	}
}

// WithNotify registers a callback run after every commit attempt that
// changed the buffer.
func WithNotify(fn func(State)) Option {
	return func(b *Buffer) {
		b.notify = fn
	}
}

// Buffer holds the edits for one section. Pending values are committed to
// the store after the debounce delay, one commit at a time; a failed commit
// rolls pending back to the committed values.
type Buffer struct {
	builder   store.Builder
	sectionID string
	kind      types.SectionType
	fields    []FieldConfig
	delay     time.Duration
	logger    logging.Logger
	notify    func(State)

	mu            sync.Mutex
	committed     map[string]any
	pending       map[string]any
	dirty         bool
	generation    uint64
	fieldErrs     map[string]*errors.FieldValidationError
	updateErr     *errors.BuilderError
	lastProcessed string
	timer         *time.Timer
	closed        bool

	updating atomic.Bool
}

// NewBuffer opens a buffer on the section with the given id.
func NewBuffer(builder store.Builder, sectionID string, opts ...Option) (*Buffer, error) {
	section, ok := builder.GetSectionByID(sectionID)
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeSectionNotFound, "section not found: "+sectionID)
	}

	values, err := types.PropsToMap(section.Props)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.ErrCodeInternalError, "read section props").
			WithSection(sectionID)
	}

	b := &Buffer{
		builder:   builder,
		sectionID: sectionID,
		kind:      section.Type,
		fields:    FieldsFor(section.Type),
		delay:     DefaultDelay,
		logger:    logging.Nop(),
		committed: values,
		pending:   cloneValues(values),
		fieldErrs: map[string]*errors.FieldValidationError{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastProcessed = encode(values)

	return b, nil
}

// SectionID returns the id of the edited section.
func (b *Buffer) SectionID() string { return b.sectionID }

// Fields returns the field configs of the edited section.
func (b *Buffer) Fields() []FieldConfig { return b.fields }

// Change records a new value for key, validates it and re-arms the commit
// timer.
func (b *Buffer) Change(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.pending[key] = value
	b.dirty = true
	b.generation++

	if fe := ValidateField(b.fields, key, value); fe != nil {
		b.fieldErrs[key] = fe
	} else {
		delete(b.fieldErrs, key)
		b.updateErr = nil
	}

	b.armLocked()
}

func (b *Buffer) armLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.commit)
}

// Flush commits pending edits immediately.
func (b *Buffer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	b.commit()
}

func (b *Buffer) commit() {
	if !b.updating.CompareAndSwap(false, true) {
		// A commit is in flight; try again once it is done.
		b.mu.Lock()
		if !b.closed {
			b.armLocked()
		}
		b.mu.Unlock()
		return
	}
	defer b.updating.Store(false)

	b.mu.Lock()
	if b.closed || !b.dirty || len(b.fieldErrs) > 0 {
		b.mu.Unlock()
		return
	}
	props := cloneValues(b.pending)
	encoded := encode(props)
	if encoded == b.lastProcessed {
		b.dirty = false
		b.mu.Unlock()
		return
	}
	b.lastProcessed = encoded
	gen := b.generation
	b.mu.Unlock()

	err := b.builder.UpdateSection(b.sectionID, props)

	b.mu.Lock()
	if err != nil {
		b.pending = cloneValues(b.committed)
		b.dirty = false
		b.lastProcessed = encode(b.committed)
		b.updateErr = errors.NewUpdateError(errors.ErrCodeUpdateFailed, UpdateFailedMessage, err).
			WithSection(b.sectionID)
		b.logger.Warn(context.Background(), err, "property update rolled back", "section", b.sectionID)
	} else {
		b.committed = props
		b.updateErr = nil
		if gen == b.generation {
			b.dirty = false
		}
		b.logger.Debug(context.Background(), "property update committed", "section", b.sectionID)
	}
	state := b.stateLocked()
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(state)
	}
}

// Revert discards pending edits and any errors.
func (b *Buffer) Revert() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.pending = cloneValues(b.committed)
	b.dirty = false
	b.generation++
	b.fieldErrs = map[string]*errors.FieldValidationError{}
	b.updateErr = nil
	b.lastProcessed = encode(b.committed)
}

// Dismiss clears the update error without touching the values.
func (b *Buffer) Dismiss() {
	b.mu.Lock()
	b.updateErr = nil
	b.mu.Unlock()
}

// UpdateError returns the error of the last failed commit, if any.
func (b *Buffer) UpdateError() *errors.BuilderError {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.updateErr
}

// State returns a snapshot of the buffer.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stateLocked()
}

func (b *Buffer) stateLocked() State {
	st := State{
		SectionID: b.sectionID,
		Type:      string(b.kind),
		Values:    cloneValues(b.pending),
		Dirty:     b.dirty,
	}
	if len(b.fieldErrs) > 0 {
		st.Errors = make(map[string]string, len(b.fieldErrs))
		for k, fe := range b.fieldErrs {
			st.Errors[k] = fe.ErrorMessage
		}
	}
	if b.updateErr != nil {
		st.UpdateError = b.updateErr.Message
	}

	return st
}

// Close stops the commit timer. Pending edits are dropped.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func cloneValues(in map[string]any) map[string]any {
	data, err := json.Marshal(in)
	if err != nil {
		out := make(map[string]any, len(in))
		for k, v := range in {
			out[k] = v
		}
		return out
	}

	out := map[string]any{}
	_ = json.Unmarshal(data, &out)

	return out
}

// encode gives a stable comparison key; encoding/json sorts map keys.
func encode(values map[string]any) string {
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}

	return string(data)
}
