package workflow

import (
	"errors"
	"fmt"
)

// VerificationError means an executed action did not change the observable
// page state. Whether the attempt was persisted depends on the path: an
// unconfirmed follow is recorded with failed=true so it is never silently
// retried, an unconfirmed unfollow is not recorded so a later pass retries
// it.
type VerificationError struct {
	Op       string
	Username string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("executed %s for %s but the page state did not change", e.Op, e.Username)
}

func IsVerification(err error) bool {
	var v *VerificationError
	return errors.As(err, &v)
}
