// Package preview renders sections to HTML. A failing section is reported as
// a per-section error result and never stops the rest of the page.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/a-h/templ"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/types"
)

// EmptyMessage is shown when the design has no sections.
const EmptyMessage = "No sections added yet"

// Result is the outcome of rendering one section: either HTML or Err.
type Result struct {
	SectionID string
	Type      types.SectionType
	Order     int
	HTML      string
	Err       *errors.BuilderError
}

// OK reports whether the section rendered.
func (r Result) OK() bool { return r.Err == nil }

// Renderer maps section types to components.
type Renderer struct {
	mu         sync.RWMutex
	components map[types.SectionType]ComponentFunc
	logger     logging.Logger
}

// NewRenderer returns a renderer with the header, hero, content and footer
// components registered.
func NewRenderer(logger logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.Nop()
	}

	r := &Renderer{
		components: make(map[types.SectionType]ComponentFunc),
		logger:     logger.WithComponent("preview"),
	}
	r.Register(types.SectionTypeHeader, HeaderComponent)
	r.Register(types.SectionTypeHero, HeroComponent)
	r.Register(types.SectionTypeContent, ContentComponent)
	r.Register(types.SectionTypeFooter, FooterComponent)

	return r
}

// Register sets the component for a section type, replacing any previous
// registration.
func (r *Renderer) Register(t types.SectionType, fn ComponentFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[t] = fn
}

// RenderSection renders one section. Errors and panics are returned as a
// render error on the result.
func (r *Renderer) RenderSection(ctx context.Context, section types.Section) (res Result) {
	res = Result{SectionID: section.ID, Type: section.Type, Order: section.Order}

	defer func() {
		if rec := recover(); rec != nil {
			res.HTML = ""
			res.Err = errors.NewRenderError(section.ID, "section render panicked", fmt.Errorf("%v", rec))
			r.logger.Error(ctx, res.Err, "section render panicked", "section", section.ID, "type", section.Type)
		}
	}()

	r.mu.RLock()
	fn, ok := r.components[section.Type]
	r.mu.RUnlock()
	if !ok {
		res.Err = errors.NewRenderError(section.ID, fmt.Sprintf("no component for section type %q", section.Type), nil)
		r.logger.Warn(ctx, res.Err, "unknown section type", "section", section.ID)
		return res
	}

	component, err := fn(section)
	if err != nil {
		res.Err = errors.NewRenderError(section.ID, "failed to build section", err)
		r.logger.Warn(ctx, err, "section build failed", "section", section.ID)
		return res
	}

	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		res.Err = errors.NewRenderError(section.ID, "failed to render section", err)
		r.logger.Warn(ctx, err, "section render failed", "section", section.ID)
		return res
	}
	res.HTML = buf.String()

	return res
}

// RenderPage renders every section in the given order.
func (r *Renderer) RenderPage(ctx context.Context, sections []types.Section) []Result {
	results := make([]Result, 0, len(sections))
	for _, section := range sections {
		results = append(results, r.RenderSection(ctx, section))
	}

	return results
}

// Retry re-renders one section from the store. It reports false when the
// section no longer exists.
func (r *Renderer) Retry(ctx context.Context, builder store.Builder, id string) (Result, bool) {
	section, ok := builder.GetSectionByID(id)
	if !ok {
		return Result{}, false
	}

	return r.RenderSection(ctx, section), true
}

// Page renders the whole design: each section wrapped with its id and
// order, failed sections replaced by their placeholder.
func (r *Renderer) Page(sections []types.Section) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(sections) == 0 {
			return EmptyState().Render(ctx, w)
		}

		results := r.RenderPage(ctx, sections)
		wrapped := make([]templ.Component, 0, len(results))
		for _, res := range results {
			wrapped = append(wrapped, Fragment(res))
		}

		return el("main", attrs("class", "pb-page"), wrapped...).Render(ctx, w)
	})
}

// Fragment renders a single result with its wrapper, for swapping one
// section after a retry.
func Fragment(res Result) templ.Component {
	body := Placeholder(res)
	if res.OK() {
		body = templ.Raw(res.HTML)
	}

	return el("div", attrs(
		"class", "pb-section",
		"data-section-id", res.SectionID,
		"data-section-type", string(res.Type),
		"data-order", strconv.Itoa(res.Order),
	), body)
}

// Placeholder renders the error box shown in place of a failed section.
// The retry button carries the section id in data-retry-section.
func Placeholder(res Result) templ.Component {
	message := "Failed to render section"
	if res.Err != nil {
		message = res.Err.Message
	}

	return el("div", attrs("class", "pb-section-error", "role", "alert"),
		textEl("p", "pb-section-error-title", "This section could not be displayed"),
		textEl("p", "pb-section-error-message", message),
		el("button", attrs("type", "button", "class", "pb-retry", "data-retry-section", res.SectionID), text("Retry")),
	)
}

// EmptyState renders the placeholder for a design without sections.
func EmptyState() templ.Component {
	return el("div", attrs("class", "pb-empty"),
		textEl("h3", "", EmptyMessage),
		textEl("p", "", "Add sections from the library to start building your website"),
	)
}
