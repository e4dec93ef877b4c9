package hdb

import "errors"

var (
	ErrNoTransitions = errors.New("no transitions proposed")
)

// TransitionError reports which transition of a batch was rejected.
type TransitionError struct {
	TransitionType string
	Err            error
}

func (e *TransitionError) Error() string {
	return "transition " + e.TransitionType + " rejected: " + e.Err.Error()
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
