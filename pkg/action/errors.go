package action

import (
	"errors"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrExecutorNotFound indicates that no executor is registered for an action kind.
	ErrExecutorNotFound = errors.New("no executor registered for action kind")

	// ErrExecutorDisabled indicates that an executor is disabled in configuration.
	ErrExecutorDisabled = errors.New("executor is disabled")

	// ErrInvalidConfig indicates that an executor's configuration is invalid.
	ErrInvalidConfig = errors.New("invalid executor configuration")

	// ErrUnsupportedAction indicates an executor received an action of the wrong kind.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
