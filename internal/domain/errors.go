package domain

import "errors"

// Not-found conditions abort the operation with no side effects. Callers
// translate them to 404-equivalent responses.
var (
	ErrWorkflowRunNotFound   = errors.New("WorkflowRun not found")
	ErrWorkflowPauseNotFound = errors.New("WorkflowPause not found")
	ErrConversationNotFound  = errors.New("Conversation not found")
	ErrMessageNotFound       = errors.New("Message not found")
	ErrAnnotationNotFound    = errors.New("MessageAnnotation not found")
	ErrDatasetNotFound       = errors.New("Dataset not found")
)

// StateError reports an illegal state-machine transition or a consistency
// check failure (e.g. a stale pause handle). It is distinguishable from the
// not-found family and carries the human-readable reason.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

func NewStateError(reason string) error {
	return &StateError{Reason: reason}
}

func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
