package models

import (
	"fmt"

	dErrors "signup/pkg/domain-errors"
)

// EmailMismatchMessage is returned when the initial info step names a different email.
const EmailMismatchMessage = "The email doesn't match to the one was provided during registration"

// TransitionError reports a step completion attempted out of order.
type TransitionError struct {
	Attempted Step
	Actual    Step
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot complete step %s while registration is at step %s", e.Attempted, e.Actual)
}

func newTransitionError(attempted, actual Step) error {
	te := &TransitionError{Attempted: attempted, Actual: actual}
	return dErrors.Wrap(te, dErrors.CodeInvalidStateTransition, te.Error())
}
