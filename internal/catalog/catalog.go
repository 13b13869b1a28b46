// Package catalog holds the section templates offered by the builder: the
// built-in set plus any templates loaded from a YAML catalog file.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/types"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

// Event is sent to watchers after a reload.
type Event struct {
	Path      string
	Count     int
	Err       error
	Timestamp time.Time
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mutex    sync.RWMutex
	builtin  []types.SectionTemplate
	loaded   []types.SectionTemplate
	watchers []chan Event
	logger   logging.Logger
}

// New returns a catalog seeded with Builtin.
func New(logger logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Nop()
	}

	return &Catalog{
		builtin: Builtin(),
		logger:  logger.WithComponent("catalog"),
	}
}

// All returns every template. Loaded templates replace built-ins with the
// same id in place; new ones follow the built-ins in file order.
func (c *Catalog) All() []types.SectionTemplate {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	overrides := make(map[string]types.SectionTemplate, len(c.loaded))
	for _, t := range c.loaded {
		overrides[t.ID] = t
	}

	out := make([]types.SectionTemplate, 0, len(c.builtin)+len(c.loaded))
	seen := make(map[string]bool, len(c.builtin))
	for _, t := range c.builtin {
		if o, ok := overrides[t.ID]; ok {
			t = o
		}
		seen[t.ID] = true
		out = append(out, clone(t))
	}
	for _, t := range c.loaded {
		if !seen[t.ID] {
			out = append(out, clone(t))
		}
	}

	return out
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (types.SectionTemplate, error) {
	for _, t := range c.All() {
		if t.ID == id {
			return t, nil
		}
	}

	return types.SectionTemplate{}, errors.ErrTemplateNotFound(id)
}

// Categories returns category names in order of first appearance.
func (c *Catalog) Categories() []string {
	var (
		names []string
		seen  = map[string]bool{}
	)
	for _, t := range c.All() {
		if !seen[t.Category] {
			seen[t.Category] = true
			names = append(names, t.Category)
		}
	}

	return names
}

// ByCategory groups templates by category, keeping catalog order within
// each group.
func (c *Catalog) ByCategory() map[string][]types.SectionTemplate {
	groups := make(map[string][]types.SectionTemplate)
	for _, t := range c.All() {
		groups[t.Category] = append(groups[t.Category], t)
	}

	return groups
}

// Reload replaces the loaded templates with the contents of path. On error
// the previous templates stay in place.
func (c *Catalog) Reload(path string) error {
	templates, err := LoadFile(path)

	c.mutex.Lock()
	if err == nil {
		c.loaded = templates
	}
	watchers := append([]chan Event(nil), c.watchers...)
	c.mutex.Unlock()

	ctx := context.Background()
	if err != nil {
		c.logger.Error(ctx, err, "catalog reload failed", "path", path)
	} else {
		c.logger.Info(ctx, "catalog loaded", "path", path, "templates", len(templates))
	}

	event := Event{Path: path, Count: len(templates), Err: err, Timestamp: time.Now()}
	for _, w := range watchers {
		select {
		case w <- event:
		default:
			// Skip if channel is full
		}
	}

	return err
}

// Watch returns a channel that receives an Event after every Reload.
func (c *Catalog) Watch() <-chan Event {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ch := make(chan Event, 10)
	c.watchers = append(c.watchers, ch)

	return ch
}

type catalogFile struct {
	Templates []fileTemplate `yaml:"templates"`
}

type fileTemplate struct {
	ID           string         `yaml:"id"`
	Name         string         `yaml:"name"`
	Category     string         `yaml:"category"`
	Description  string         `yaml:"description"`
	Thumbnail    string         `yaml:"thumbnail"`
	DefaultProps map[string]any `yaml:"defaultProps"`
}

// LoadFile reads a YAML catalog file. Every template is validated; the
// first failure is returned.
func LoadFile(path string) ([]types.SectionTemplate, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid catalog path").
			WithContext("path", path).WithContext("reason", err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileRead, "failed to read catalog file", err).
			WithContext("path", path)
	}

	return Parse(data)
}

// Parse decodes catalog YAML.
func Parse(data []byte) ([]types.SectionTemplate, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewParseError(errors.ErrCodeTemplateInvalid, "failed to parse catalog YAML", err)
	}

	out := make([]types.SectionTemplate, 0, len(file.Templates))
	seen := make(map[string]bool, len(file.Templates))
	for i, ft := range file.Templates {
		t, err := ft.template()
		if err != nil {
			return nil, fmt.Errorf("templates.%d: %w", i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("templates.%d: %w", i,
				errors.NewValidationError(errors.ErrCodeTemplateInvalid, "duplicate template id "+t.ID))
		}
		seen[t.ID] = true
		out = append(out, t)
	}

	return out, nil
}

func (ft fileTemplate) template() (types.SectionTemplate, error) {
	name := ft.Name
	if strings.TrimSpace(name) == "" {
		name = DisplayName(ft.ID)
	}

	props, err := types.DecodeProps(types.SectionType(ft.ID), ft.DefaultProps)
	if err != nil {
		return types.SectionTemplate{}, errors.NewValidationError(errors.ErrCodeTemplateInvalid, "invalid default props").
			WithContext("id", ft.ID).WithContext("reason", err.Error())
	}

	t := types.SectionTemplate{
		ID:           ft.ID,
		Name:         name,
		Category:     ft.Category,
		Description:  ft.Description,
		DefaultProps: props,
		Thumbnail:    ft.Thumbnail,
	}
	if err := validation.ValidateTemplate(t); err != nil {
		return types.SectionTemplate{}, err
	}

	return t, nil
}

// DisplayName turns a template id such as "pricing-table" into
// "Pricing Table".
func DisplayName(id string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(id)

	return cases.Title(language.English).String(strings.Join(strings.Fields(words), " "))
}

func clone(t types.SectionTemplate) types.SectionTemplate {
	if t.DefaultProps != nil {
		t.DefaultProps = t.DefaultProps.Clone()
	}

	return t
}
