package conversation

import "errors"

var (
	// ErrValidation marks a confirm attempt with missing booking fields.
	ErrValidation = errors.New("validation failed")

	// ErrUnmatchedInput marks input that means nothing in the current
	// step.  It is never shown to the user.
	ErrUnmatchedInput = errors.New("unmatched input")

	// ErrCreateFailed marks a reservation the repository did not store.
	ErrCreateFailed = errors.New("reservation not created")
)
