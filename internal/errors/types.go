// Package errors defines the error taxonomy shared by the builder packages.
//
// Store actions never return these for caller-input problems (unknown ids,
// out-of-range indices); they are produced by the import/export pipeline,
// the property editor commit path and the section renderer.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeFile       ErrorType = "file"
	ErrorTypeUpdate     ErrorType = "update"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeDrag       ErrorType = "drag"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// BuilderError is a structured error type with context.
type BuilderError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	SectionID   string
	Recoverable bool
}

// Error implements the error interface.
func (e *BuilderError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.SectionID != "" {
		parts = append(parts, "section:"+e.SectionID)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuilderError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BuilderError) Is(target error) bool {
	var t *BuilderError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuilderError) WithContext(key string, value interface{}) *BuilderError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithSection attaches the section the error belongs to.
func (e *BuilderError) WithSection(sectionID string) *BuilderError {
	e.SectionID = sectionID

	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewParseError creates a parse error. Parse errors are reported separately
// from schema validation errors.
func NewParseError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeParse,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewFileError creates a file constraint error.
func NewFileError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeFile,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewUpdateError creates an error for a failed store commit.
func NewUpdateError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeUpdate,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewRenderError creates a per-section render error.
func NewRenderError(sectionID, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeRender,
		Code:        ErrCodeSectionRender,
		Message:     message,
		Cause:       cause,
		SectionID:   sectionID,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// IsType reports whether err is a BuilderError of the given type.
func IsType(err error, t ErrorType) bool {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Type == t
	}

	return false
}

// IsValidationError checks if an error is a schema validation error.
func IsValidationError(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsParseError checks if an error is a JSON parse error.
func IsParseError(err error) bool {
	return IsType(err, ErrorTypeParse)
}

// IsFileError checks if an error is a file constraint error.
func IsFileError(err error) bool {
	return IsType(err, ErrorTypeFile)
}

// HasCode reports whether err is a BuilderError carrying code.
func HasCode(err error, code string) bool {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Code == code
	}

	return false
}

// Common error codes.
const (
	ErrCodeExportInvalid    = "ERR_EXPORT_INVALID"
	ErrCodeExportEmpty      = "ERR_EXPORT_EMPTY"
	ErrCodeImportInvalid    = "ERR_IMPORT_INVALID"
	ErrCodeImportParse      = "ERR_IMPORT_PARSE"
	ErrCodeImportEmpty      = "ERR_IMPORT_EMPTY"
	ErrCodeFileType         = "ERR_FILE_TYPE"
	ErrCodeFileTooLarge     = "ERR_FILE_TOO_LARGE"
	ErrCodeFileRead         = "ERR_FILE_READ"
	ErrCodeFileWrite        = "ERR_FILE_WRITE"
	ErrCodeUpdateFailed     = "ERR_UPDATE_FAILED"
	ErrCodeSectionNotFound  = "ERR_SECTION_NOT_FOUND"
	ErrCodeSectionRender    = "ERR_SECTION_RENDER"
	ErrCodeTemplateNotFound = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateInvalid  = "ERR_TEMPLATE_INVALID"
	ErrCodeSectionLimit     = "ERR_SECTION_LIMIT"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
)

// ValidationError interface for field-specific validation errors.
type ValidationError interface {
	error
	Field() string
	Value() interface{}
	Suggestions() []string
}

// FieldValidationError implements ValidationError for specific field errors.
// FieldName is a dotted path such as "sections.2.order".
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
	HelpText     []string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	if fve.FieldName == "" {
		return fve.ErrorMessage
	}

	return fmt.Sprintf("%s: %s", fve.FieldName, fve.ErrorMessage)
}

// Field returns the field path that failed validation.
func (fve *FieldValidationError) Field() string {
	return fve.FieldName
}

// Value returns the invalid value.
func (fve *FieldValidationError) Value() interface{} {
	return fve.FieldValue
}

// Suggestions returns helpful suggestions for fixing the error.
func (fve *FieldValidationError) Suggestions() []string {
	return fve.HelpText
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
		HelpText:     suggestions,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}

	return strings.Join(vec.Messages(), ", ")
}

// Add adds a validation error to the collection.
func (vec *ValidationErrorCollection) Add(err ValidationError) {
	vec.Errors = append(vec.Errors, err)
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) {
	vec.Add(NewFieldValidationError(field, value, message, suggestions...))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return vec != nil && len(vec.Errors) > 0
}

// Messages returns one "path: message" line per error, in the order they
// were recorded.
func (vec *ValidationErrorCollection) Messages() []string {
	if vec == nil {
		return nil
	}
	messages := make([]string, 0, len(vec.Errors))
	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
	}

	return messages
}

// Fields returns the sorted, de-duplicated set of failing field paths.
func (vec *ValidationErrorCollection) Fields() []string {
	if vec == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(vec.Errors))
	for _, err := range vec.Errors {
		seen[err.Field()] = struct{}{}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return fields
}

// ToBuilderError converts the collection to a single BuilderError carrying
// every failure, prefixed with message.
func (vec *ValidationErrorCollection) ToBuilderError(code, message string) *BuilderError {
	if !vec.HasErrors() {
		return nil
	}

	context := make(map[string]interface{}, len(vec.Errors))
	for _, err := range vec.Errors {
		context[err.Field()] = err.Value()
	}

	return &BuilderError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Cause:       vec,
		Context:     context,
		Recoverable: true,
	}
}

// ErrTemplateNotFound creates a template lookup error.
func ErrTemplateNotFound(id string) *BuilderError {
	return NewValidationError(ErrCodeTemplateNotFound, "template not found: "+id)
}
