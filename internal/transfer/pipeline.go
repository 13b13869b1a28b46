// Package transfer moves designs in and out of the store as JSON files.
// Both directions validate against the same export schema; the store is
// only touched after every check has passed.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/types"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

// DefaultMaxSize caps imported files at 10MB.
const DefaultMaxSize int64 = 10 * 1024 * 1024

// JSONMIMEType is the MIME type of exports.
const JSONMIMEType = "application/json"

// Result is a completed export.
type Result struct {
	Filename string
	Data     []byte
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSaver sets where exports go.
func WithSaver(s FileSaver) Option {
	return func(p *Pipeline) { p.saver = s }
}

// WithReader sets how imported files are read.
func WithReader(r FileReader) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reader = r
		}
	}
}

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxSize = n
		}
	}
}

// WithClock replaces time.Now for export filenames.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger.WithComponent("transfer")
		}
	}
}

// Pipeline runs exports and imports against a store.
type Pipeline struct {
	builder store.Builder
	saver   FileSaver
	reader  FileReader
	maxSize int64
	now     func() time.Time
	logger  logging.Logger
}

// NewPipeline creates a pipeline. Without WithSaver, Export only returns
// the result.
func NewPipeline(builder store.Builder, opts ...Option) *Pipeline {
	p := &Pipeline{
		builder: builder,
		reader:  HandleReader,
		maxSize: DefaultMaxSize,
		now:     time.Now,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// MaxSize returns the import size cap in bytes.
func (p *Pipeline) MaxSize() int64 { return p.maxSize }

// Export validates the current design and hands it to the saver.
func (p *Pipeline) Export(ctx context.Context) (Result, error) {
	perf := logging.StartOperation(p.logger, "export")

	res, err := p.export(ctx)
	if err != nil {
		perf.EndWithError(ctx, err)
		return Result{}, err
	}
	perf.End(ctx, "filename", res.Filename, "bytes", len(res.Data))

	return res, nil
}

func (p *Pipeline) export(ctx context.Context) (Result, error) {
	if len(p.builder.GetOrderedSections()) == 0 {
		return Result{}, errors.NewValidationError(errors.ErrCodeExportEmpty,
			"No sections to export. Please add some sections to your design first.")
	}

	design := p.builder.ExportDesign()

	data, err := Marshal(design)
	if err != nil {
		return Result{}, err
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, errors.NewInternalError(errors.ErrCodeInternalError, "failed to re-read export", err)
	}
	if vec := validation.ValidateExportPayload(payload); vec.HasErrors() {
		return Result{}, vec.ToBuilderError(errors.ErrCodeExportInvalid, "Export validation failed")
	}

	res := Result{Filename: Filename(p.now()), Data: data}
	if p.saver != nil {
		if err := p.saver.Save(ctx, res.Filename, res.Data); err != nil {
			return Result{}, err
		}
	}

	return res, nil
}

// Import checks, reads, parses and validates file, then replaces the
// store contents with it.
func (p *Pipeline) Import(ctx context.Context, file File) error {
	perf := logging.StartOperation(p.logger, "import")

	n, err := p.importFile(ctx, file)
	if err != nil {
		perf.EndWithError(ctx, err, "file", file.Name)
		return err
	}
	perf.End(ctx, "file", file.Name, "sections", n)

	return nil
}

func (p *Pipeline) importFile(ctx context.Context, file File) (int, error) {
	if err := p.CheckFile(file); err != nil {
		return 0, err
	}

	data, err := p.reader.Read(ctx, file)
	if err != nil {
		var be *errors.BuilderError
		if stderrors.As(err, &be) {
			return 0, err
		}
		return 0, errors.NewIOError(errors.ErrCodeFileRead, "Failed to read file", err)
	}
	if int64(len(data)) > p.maxSize {
		return 0, p.tooLarge()
	}

	design, err := Decode(data)
	if err != nil {
		return 0, err
	}

	p.builder.ImportDesign(design)

	return len(design.Sections), nil
}

// CheckFile applies the type and size constraints.
func (p *Pipeline) CheckFile(file File) error {
	if !isJSON(file) {
		return errors.NewFileError(errors.ErrCodeFileType, "Please select a valid JSON file")
	}
	if file.Size > p.maxSize {
		return p.tooLarge()
	}

	return nil
}

func (p *Pipeline) tooLarge() error {
	return errors.NewFileError(errors.ErrCodeFileTooLarge,
		fmt.Sprintf("File size too large. Please select a file smaller than %s", formatSize(p.maxSize))).
		WithContext("max_size", p.maxSize)
}

func isJSON(file File) bool {
	if file.MIMEType != "" {
		if mediaType, _, err := mime.ParseMediaType(file.MIMEType); err == nil && mediaType == JSONMIMEType {
			return true
		}
	}

	return strings.HasSuffix(file.Name, ".json")
}

// Decode parses and validates an export document. Parse failures, schema
// failures and an empty section list are reported as distinct errors.
func Decode(data []byte) (types.ExportData, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return types.ExportData{}, errors.NewParseError(errors.ErrCodeImportParse,
			"Invalid JSON file. Please check the file format and try again.", err)
	}

	if vec := validation.ValidateExportPayload(payload); vec.HasErrors() {
		return types.ExportData{}, vec.ToBuilderError(errors.ErrCodeImportInvalid, "Invalid file format")
	}

	// Round-trip the validated tree so integral floats such as 1.0 decode
	// into int fields.
	normalized, err := json.Marshal(payload)
	if err != nil {
		return types.ExportData{}, errors.NewInternalError(errors.ErrCodeInternalError, "failed to normalize import", err)
	}
	var design types.ExportData
	if err := json.Unmarshal(normalized, &design); err != nil {
		return types.ExportData{}, errors.NewParseError(errors.ErrCodeImportParse,
			"Invalid JSON file. Please check the file format and try again.", err)
	}

	if len(design.Sections) == 0 {
		return types.ExportData{}, errors.NewValidationError(errors.ErrCodeImportEmpty,
			"The imported file contains no sections")
	}

	return design, nil
}

// Marshal encodes a design the way exports are written: two-space
// indentation, no HTML escaping.
func Marshal(design types.ExportData) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(design); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "failed to encode export", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Filename returns website-design-<timestamp>.json for t, with the
// timestamp in UTC at second precision and ':' replaced by '-'.
func Filename(t time.Time) string {
	return "website-design-" + t.UTC().Format("2006-01-02T15-04-05") + ".json"
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n%1024 == 0 {
		return fmt.Sprintf("%dKB", n/1024)
	}

	return fmt.Sprintf("%d bytes", n)
}
