package transfer

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/conneroisu/pagebuilder/internal/errors"
)

// FeedbackKind tells the UI how to style a message.
type FeedbackKind string

const (
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
)

// Action names the operation a Guard wraps.
type Action string

const (
	ActionExport Action = "export"
	ActionImport Action = "import"
)

// Feedback is the user-facing outcome of a guarded operation.
type Feedback struct {
	Kind    FeedbackKind `json:"kind"`
	Action  Action       `json:"action"`
	Message string       `json:"message"`
	Details []string     `json:"details,omitempty"`
}

// OK reports whether the operation succeeded.
func (f Feedback) OK() bool { return f.Kind == FeedbackSuccess }

// Guard runs op, logs a failure and turns the outcome into Feedback. reset
// runs afterwards whether op failed or not.
func (p *Pipeline) Guard(ctx context.Context, action Action, op func(context.Context) error, reset func()) Feedback {
	if reset != nil {
		defer reset()
	}

	err := op(ctx)
	if err == nil {
		return Feedback{Kind: FeedbackSuccess, Action: action, Message: successMessage(action)}
	}

	p.logger.Error(ctx, err, string(action)+" failed")

	return Feedback{
		Kind:    FeedbackError,
		Action:  action,
		Message: failureMessage(action, err),
		Details: errors.Details(err),
	}
}

func successMessage(action Action) string {
	if action == ActionImport {
		return "Design imported successfully!"
	}

	return "Design exported successfully!"
}

func failureMessage(action Action, err error) string {
	var be *errors.BuilderError
	if !stderrors.As(err, &be) {
		if action == ActionImport {
			return "Failed to import design"
		}
		return "Failed to export design"
	}

	if details := errors.Details(be); len(details) > 0 {
		return be.Message + ": " + strings.Join(details, ", ")
	}

	return be.Message
}
