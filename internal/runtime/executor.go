package runtime

import (
	"encoding/json"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/hdb"
)

// ForgetExecutor drops the runtime status of instances removed from the registry.
type ForgetExecutor struct {
	tracker *Tracker
}

func NewForgetExecutor(tracker *Tracker) *ForgetExecutor {
	return &ForgetExecutor{tracker: tracker}
}

func (e *ForgetExecutor) TransitionType() string {
	return launcher.TransitionRemoveInstance
}

func (e *ForgetExecutor) Execute(update *hdb.StateUpdate) error {
	var t launcher.RemoveInstanceTransition
	if err := json.Unmarshal(update.Transition, &t); err != nil {
		return err
	}
	e.tracker.Forget(t.ID)
	return nil
}

// Restore drops entries of instances missing from the restored state.
func (e *ForgetExecutor) Restore(update *hdb.StateUpdate) error {
	var state launcher.LauncherState
	if err := json.Unmarshal(update.NewState, &state); err != nil {
		return err
	}
	for _, s := range e.tracker.Snapshot() {
		if _, ok := state.GetInstance(s.InstanceID); !ok {
			e.tracker.Forget(s.InstanceID)
		}
	}
	return nil
}
