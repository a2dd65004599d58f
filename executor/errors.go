package executor

import (
	"errors"
	"fmt"
)

// TransientError is a slow or rate-limited platform response. Callers retry
// these with backoff before escalating.
type TransientError struct {
	Op  string
	Err error
}

func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient platform error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NotFoundError means the target identifier does not resolve on the remote
// platform. It is never retried.
type NotFoundError struct {
	Target string
}

func NewNotFoundError(target string) *NotFoundError {
	return &NotFoundError{Target: target}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("target not found: %s", e.Target)
}

// BlockedError is the platform's soft-ban signal. It aborts the entire run:
// the session has already been invalidated by the time it is returned.
type BlockedError struct {
	Op string
}

func NewBlockedError(op string) *BlockedError {
	return &BlockedError{Op: op}
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("action blocked by platform during %s", e.Op)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsBlocked(err error) bool {
	var b *BlockedError
	return errors.As(err, &b)
}
