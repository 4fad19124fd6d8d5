package core

import "github.com/pkg/errors"

// shutdown is a fatal error: the API server stops gracefully once it has answered the request.
type shutdown struct {
	reason string
}

// NewShutdownError returns an error that asks the API server to shut down gracefully.
func NewShutdownError(reason string) error {
	return &shutdown{reason: reason}
}

func (s *shutdown) Error() string {
	return "shutting down: " + s.reason
}

// IsShutdown reports whether the cause of `err` is a shutdown error.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
