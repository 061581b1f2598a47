package document

import (
	"fmt"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
)

// UnreadableError is returned when a document cannot be turned into text or tokens.
// No partial layout accompanies it.
type UnreadableError struct {
	Name   string
	Reason string
	Cause  error
}

func (e *UnreadableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("document %q unreadable: %s: %v", e.Name, e.Reason, e.Cause)
	}
	return fmt.Sprintf("document %q unreadable: %s", e.Name, e.Reason)
}

func (e *UnreadableError) Unwrap() error { return e.Cause }

// Is lets callers match with errors.Is(err, common.ErrDocumentUnreadable).
func (e *UnreadableError) Is(target error) bool {
	return target == common.ErrDocumentUnreadable
}

func unreadable(name, reason string, cause error) error {
	return &UnreadableError{Name: name, Reason: reason, Cause: cause}
}
