package hdb

import (
	"fmt"

	"github.com/rs/zerolog"
)

// StateUpdateExecutor acts on a committed transition of one type, bringing an external
// system in line with the new state.
type StateUpdateExecutor interface {
	TransitionType() string
	Execute(*StateUpdate) error
}

type StateRestorer interface {
	Restore(*StateUpdate) error
}

// ExecutorSubscriber routes state updates of one database to the executor registered
// for the transition type. Updates it has no executor for are ignored, since the
// publisher does not filter by topic.
type ExecutorSubscriber struct {
	name         string
	databaseName string
	executors    map[string]StateUpdateExecutor
	restorer     StateRestorer
}

func NewExecutorSubscriber(name, databaseName string, executors []StateUpdateExecutor, restorer StateRestorer) (*ExecutorSubscriber, error) {
	res := &ExecutorSubscriber{
		name:         name,
		databaseName: databaseName,
		executors:    make(map[string]StateUpdateExecutor),
		restorer:     restorer,
	}

	for _, executor := range executors {
		if _, ok := res.executors[executor.TransitionType()]; ok {
			return nil, fmt.Errorf("duplicate executor for transition type %s", executor.TransitionType())
		}
		res.executors[executor.TransitionType()] = executor
	}

	return res, nil
}

func (s *ExecutorSubscriber) Name() string {
	return s.name
}

func (s *ExecutorSubscriber) ConsumeEvent(event *StateUpdate) error {
	if s.databaseName != event.DatabaseName {
		return nil
	}

	if event.Restore {
		if s.restorer == nil {
			return nil
		}
		if err := s.restorer.Restore(event); err != nil {
			return fmt.Errorf("error restoring from %s state: %w", event.DatabaseName, err)
		}
		return nil
	}

	executor, ok := s.executors[event.TransitionType()]
	if !ok {
		return nil
	}

	if err := executor.Execute(event); err != nil {
		return fmt.Errorf("error acting on state update for transition %s: %w", event.TransitionType(), err)
	}
	return nil
}

// StateUpdateLogger is a subscriber for StateUpdates that logs them.
type StateUpdateLogger struct {
	logger *zerolog.Logger
}

func NewStateUpdateLogger(logger *zerolog.Logger) *StateUpdateLogger {
	return &StateUpdateLogger{
		logger: logger,
	}
}

func (s *StateUpdateLogger) Name() string {
	return "StateUpdateLogger"
}

func (s *StateUpdateLogger) ConsumeEvent(event *StateUpdate) error {
	if event.Restore {
		s.logger.Info().Msgf("Restored %s state at index %d", event.DatabaseName, event.Index)
		return nil
	}
	s.logger.Debug().
		Uint64("index", event.Index).
		RawJSON("patch", event.Patch).
		Msgf("Applied transition %s to %s", event.TransitionType(), event.DatabaseName)
	return nil
}
