package freelink

import (
	"errors"
	"fmt"
)

var (
	ErrMissingIndicator = errors.New("missing plugin indicator")
	ErrUnknownIndicator = errors.New("unknown plugin indicator")
)

// ResolveError reports an occurrence whose indicator selected no handler.
type ResolveError struct {
	Indicator string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %q", e.Unwrap(), e.Indicator)
}

func (e *ResolveError) Unwrap() error {
	if e.Indicator == "" || e.Indicator == NoDefault {
		return ErrMissingIndicator
	}
	return ErrUnknownIndicator
}

// Message is the display text for the error fragment.
func (e *ResolveError) Message() string {
	if errors.Is(e, ErrMissingIndicator) {
		return "Missing plugin indicator"
	}
	return "Unknown plugin indicator"
}

// BuildError is returned by handlers that cannot produce a link. Handler is
// filled in by the scanner when left empty.
type BuildError struct {
	Handler string
	Message string
	Err     error
}

// Errorf returns a BuildError with a formatted message.
func Errorf(format string, args ...any) *BuildError {
	return &BuildError{Message: fmt.Sprintf(format, args...)}
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Handler, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Handler, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// asBuildError normalizes any handler error into a BuildError.
func asBuildError(handlerID string, err error) *BuildError {
	var be *BuildError
	if errors.As(err, &be) {
		out := *be
		if out.Handler == "" {
			out.Handler = handlerID
		}
		if out.Message == "" && out.Err != nil {
			out.Message = out.Err.Error()
		}
		return &out
	}
	return &BuildError{Handler: handlerID, Message: err.Error(), Err: err}
}
