package hdb

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/rs/zerolog/log"
)

// Persister writes a committed state document to stable storage.
type Persister interface {
	Persist(state []byte) error
}

// Database is a single-writer JSON state machine. Transitions are validated and applied
// to a branch of the current state; the branch replaces the state only when every
// transition of the batch succeeded, then it is persisted and published.
//
// Subscribers run while the write lock is held, so they must not propose transitions
// from ConsumeEvent.
type Database struct {
	name      string
	schema    []byte
	jsonState *JSONState
	persister Persister
	publisher pubsub.Publisher[StateUpdate]

	index uint64
	mu    sync.Mutex
}

func NewDatabase(name string, schema []byte, initState []byte, persister Persister, publisher pubsub.Publisher[StateUpdate]) (*Database, error) {
	jsonState, err := NewJSONState(schema, initState)
	if err != nil {
		return nil, err
	}
	return &Database{
		name:      name,
		schema:    schema,
		jsonState: jsonState,
		persister: persister,
		publisher: publisher,
	}, nil
}

func (db *Database) Name() string {
	return db.name
}

// Bytes returns the current state. The returned slice is never mutated.
func (db *Database) Bytes() []byte {
	return db.jsonState.Bytes()
}

func (db *Database) Unmarshal(dest interface{}) error {
	return json.Unmarshal(db.Bytes(), dest)
}

// ProposeTransitions applies the transitions atomically and returns the new state.
func (db *Database) ProposeTransitions(transitions []Transition) (*JSONState, error) {
	if len(transitions) == 0 {
		return nil, ErrNoTransitions
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	branch, err := db.jsonState.Copy()
	if err != nil {
		return nil, err
	}

	wrappers := make([]*TransitionWrapper, 0, len(transitions))
	for _, t := range transitions {
		err = t.Validate(branch.Bytes())
		if err != nil {
			return nil, &TransitionError{TransitionType: t.Type(), Err: err}
		}

		patch, err := t.Patch(branch.Bytes())
		if err != nil {
			return nil, &TransitionError{TransitionType: t.Type(), Err: err}
		}

		err = branch.ApplyPatch(patch)
		if err != nil {
			return nil, &TransitionError{TransitionType: t.Type(), Err: err}
		}

		wrapped, err := WrapTransition(t, patch)
		if err != nil {
			return nil, err
		}
		wrappers = append(wrappers, wrapped)
	}

	if db.persister != nil {
		if err := db.persister.Persist(branch.Bytes()); err != nil {
			return nil, fmt.Errorf("error persisting %s state: %w", db.name, err)
		}
	}
	db.jsonState = branch

	for _, w := range wrappers {
		db.index++
		db.publish(&StateUpdate{
			Index:             db.index,
			DatabaseName:      db.name,
			TransitionWrapper: w,
			NewState:          branch.Bytes(),
		})
	}

	return branch, nil
}

// Restore announces the current state to subscribers so they can rebuild from it.
func (db *Database) Restore() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.publish(&StateUpdate{
		Index:        db.index,
		DatabaseName: db.name,
		Restore:      true,
		NewState:     db.jsonState.Bytes(),
	})
}

func (db *Database) publish(update *StateUpdate) {
	if db.publisher == nil {
		return
	}
	if err := db.publisher.PublishEvent(update); err != nil {
		log.Error().Err(err).Msgf("error publishing state update for %s", db.name)
	}
}
