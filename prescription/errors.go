package prescription

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every InvalidInputError through errors.Is
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports raw input that is not usable text at all.
// Documents that simply contain no recognizable data never produce it.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidInput) hold
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(reason string, err error) error {
	return &InvalidInputError{Reason: reason, Err: err}
}
