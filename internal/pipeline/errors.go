package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrContentBlocked matches every *BlockedError.
	ErrContentBlocked = errors.New("content blocked by safety gate")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid decision request")
)

// BlockedError aborts a run on an unsafe verdict. UserMessage is safe to show;
// InternalReason is for logs only.
type BlockedError struct {
	UserMessage    string
	InternalReason string
	Stage          string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("content blocked at %s: %s", e.Stage, e.InternalReason)
}

func (e *BlockedError) Is(target error) bool { return target == ErrContentBlocked }
