package launch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when there is no instance to launch. It is a guarded
	// precondition and never becomes a notification.
	ErrNotReady       = errors.New("no instance selected")
	ErrAlreadyRunning = errors.New("instance is already launching or running")
)

// PrepareFailed means the native core could not stage the version.
type PrepareFailed struct {
	InstanceID string
	Err        error
}

func (e *PrepareFailed) Error() string {
	return fmt.Sprintf("error preparing instance %s: %s", e.InstanceID, e.Err)
}

func (e *PrepareFailed) Unwrap() error {
	return e.Err
}

// LaunchFailed means the native core could not start the game, or the game ended
// with an error.
type LaunchFailed struct {
	InstanceID string
	Err        error
}

func (e *LaunchFailed) Error() string {
	return fmt.Sprintf("error launching instance %s: %s", e.InstanceID, e.Err)
}

func (e *LaunchFailed) Unwrap() error {
	return e.Err
}

func outcome(err error) string {
	var prepareErr *PrepareFailed
	var launchErr *LaunchFailed
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &prepareErr):
		return "prepare_failed"
	case errors.As(err, &launchErr):
		return "launch_failed"
	default:
		return "error"
	}
}
