package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a BuilderError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *BuilderError {
	if err == nil {
		return nil
	}

	// Preserve section and recoverability of an inner BuilderError
	var be *BuilderError
	if errors.As(err, &be) {
		return &BuilderError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       be,
			Context:     be.Context,
			SectionID:   be.SectionID,
			Recoverable: be.Recoverable,
		}
	}

	return &BuilderError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType != ErrorTypeInternal && errType != ErrorTypeConfig,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *BuilderError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// FormatError formats an error for user display
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var be *BuilderError
	if errors.As(err, &be) {
		return be.Error()
	}

	return err.Error()
}

// Details returns the individual field failures carried by err, or nil when
// err holds no validation collection.
func Details(err error) []string {
	var vec *ValidationErrorCollection
	if errors.As(err, &vec) {
		return vec.Messages()
	}

	return nil
}

// GetErrorContext extracts context information from a BuilderError
func GetErrorContext(err error) map[string]interface{} {
	var be *BuilderError
	if errors.As(err, &be) {
		context := make(map[string]interface{})
		for k, v := range be.Context {
			context[k] = v
		}
		if be.SectionID != "" {
			context["section"] = be.SectionID
		}
		context["type"] = string(be.Type)
		context["code"] = be.Code
		context["recoverable"] = be.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// CombineErrors combines multiple errors into a single error
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	return fmt.Errorf("%d errors occurred: %w", len(nonNil), errors.Join(nonNil...))
}
