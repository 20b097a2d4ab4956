package alerts

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the sentinel wrapped by every InvalidArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError reports a request the service rejected without side effects.
// Any other error returned by Service is an infrastructure failure.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string { return e.Msg }

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

func invalidf(format string, args ...any) error {
	return &InvalidArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// IsInvalidArgument reports whether err (or anything it wraps) is an invalid-argument error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
