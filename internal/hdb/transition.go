package hdb

import (
	"encoding/json"
)

type Transition interface {
	Type() string

	// Validate checks the transition against the current state. It runs before Patch.
	Validate(oldState []byte) error

	// Patch returns an RFC 6902 JSON patch turning oldState into the new state.
	Patch(oldState []byte) ([]byte, error)
}

type TransitionWrapper struct {
	Type       string `json:"type"`
	Patch      []byte `json:"patch"`      // The JSON patch generated from the transition struct
	Transition []byte `json:"transition"` // JSON encoded transition struct
}

func WrapTransition(t Transition, patch []byte) (*TransitionWrapper, error) {
	transition, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	return &TransitionWrapper{
		Type:       t.Type(),
		Patch:      patch,
		Transition: transition,
	}, nil
}

type State interface {
	Schema() []byte
	Bytes() ([]byte, error)
}

func StateToJSONState(state State) (*JSONState, error) {
	stateBytes, err := state.Bytes()
	if err != nil {
		return nil, err
	}
	return NewJSONState(state.Schema(), stateBytes)
}

// StateUpdate is published after every committed transition.
type StateUpdate struct {
	Index        uint64
	DatabaseName string
	Restore      bool

	*TransitionWrapper
	NewState []byte
}

func (u *StateUpdate) TransitionType() string {
	if u.TransitionWrapper == nil {
		return ""
	}
	return u.Type
}
