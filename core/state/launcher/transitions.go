package launcher

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wI2L/jsondiff"
)

var (
	TransitionInitialize     = "initialize"
	TransitionAddInstance    = "add_instance"
	TransitionUpdateInstance = "update_instance"
	TransitionRemoveInstance = "remove_instance"
	TransitionSelectInstance = "select_instance"
	TransitionChangeRootPath = "change_root_path"
	TransitionSetNickname    = "set_nickname"
)

type JSONPatch struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

func marshalPatch(ops ...JSONPatch) ([]byte, error) {
	if ops == nil {
		ops = make([]JSONPatch, 0)
	}
	return json.Marshal(ops)
}

func unmarshalState(oldState []byte) (*LauncherState, error) {
	var state LauncherState
	if err := json.Unmarshal(oldState, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

type InitializationTransition struct {
	InitState *LauncherState `json:"init_state"`
}

func (t *InitializationTransition) Type() string {
	return TransitionInitialize
}

func (t *InitializationTransition) Patch(oldState []byte) ([]byte, error) {
	if t.InitState.Instances == nil {
		t.InitState.Instances = make([]*Instance, 0)
	}
	if t.InitState.SchemaVersion == "" {
		t.InitState.SchemaVersion = CurrentSchemaVersion
	}
	if t.InitState.Nickname == "" {
		t.InitState.Nickname = DefaultNickname
	}
	return marshalPatch(JSONPatch{Op: "add", Path: "", Value: t.InitState})
}

func (t *InitializationTransition) Validate(oldState []byte) error {
	if t.InitState == nil {
		return fmt.Errorf("init state cannot be nil")
	}
	return nil
}

type AddInstanceTransition struct {
	Instance *Instance `json:"instance"`
}

func (t *AddInstanceTransition) Type() string {
	return TransitionAddInstance
}

func (t *AddInstanceTransition) Patch(oldState []byte) ([]byte, error) {
	return marshalPatch(JSONPatch{Op: "add", Path: "/instances/-", Value: t.Instance})
}

func (t *AddInstanceTransition) Validate(oldState []byte) error {
	if t.Instance == nil {
		return errors.New("instance cannot be nil")
	}
	if t.Instance.ID == "" {
		return errors.New("instance id cannot be empty")
	}

	old, err := unmarshalState(oldState)
	if err != nil {
		return err
	}
	if _, ok := old.GetInstance(t.Instance.ID); ok {
		return fmt.Errorf("instance with id %s already exists", t.Instance.ID)
	}
	return nil
}

// UpdateInstanceTransition merges the provided fields into an instance. An unknown id
// produces an empty patch.
type UpdateInstanceTransition struct {
	ID      string         `json:"id"`
	Changes *InstancePatch `json:"changes"`
}

func (t *UpdateInstanceTransition) Type() string {
	return TransitionUpdateInstance
}

func (t *UpdateInstanceTransition) Patch(oldState []byte) ([]byte, error) {
	old, err := unmarshalState(oldState)
	if err != nil {
		return nil, err
	}

	i := old.instanceIndex(t.ID)
	if i < 0 || t.Changes.Empty() {
		return marshalPatch()
	}

	merged := t.Changes.Apply(old.Instances[i])
	patch, err := jsondiff.Compare(old.Instances[i], merged)
	if err != nil {
		return nil, err
	}

	ops := make([]JSONPatch, 0, len(patch))
	for _, op := range patch {
		ops = append(ops, JSONPatch{
			Op:    op.Type,
			Path:  fmt.Sprintf("/instances/%d%s", i, op.Path),
			Value: op.Value,
		})
	}
	return marshalPatch(ops...)
}

func (t *UpdateInstanceTransition) Validate(oldState []byte) error {
	return ValidatePatch(t.Changes)
}

// RemoveInstanceTransition deletes an instance and clears the selection when it pointed
// at that instance.
type RemoveInstanceTransition struct {
	ID string `json:"id"`
}

func (t *RemoveInstanceTransition) Type() string {
	return TransitionRemoveInstance
}

func (t *RemoveInstanceTransition) Patch(oldState []byte) ([]byte, error) {
	old, err := unmarshalState(oldState)
	if err != nil {
		return nil, err
	}

	i := old.instanceIndex(t.ID)
	if i < 0 {
		return marshalPatch()
	}

	ops := []JSONPatch{{Op: "remove", Path: fmt.Sprintf("/instances/%d", i)}}
	if old.SelectedInstance != nil && *old.SelectedInstance == t.ID {
		ops = append(ops, JSONPatch{Op: "add", Path: "/selected_instance", Value: nil})
	}
	return marshalPatch(ops...)
}

func (t *RemoveInstanceTransition) Validate(oldState []byte) error {
	return nil
}

// SelectInstanceTransition sets the selection. Ids that do not reference an existing
// instance collapse to no selection.
type SelectInstanceTransition struct {
	ID *string `json:"id"`
}

func (t *SelectInstanceTransition) Type() string {
	return TransitionSelectInstance
}

func (t *SelectInstanceTransition) Patch(oldState []byte) ([]byte, error) {
	old, err := unmarshalState(oldState)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if t.ID != nil {
		if _, ok := old.GetInstance(*t.ID); ok {
			value = *t.ID
		}
	}
	return marshalPatch(JSONPatch{Op: "add", Path: "/selected_instance", Value: value})
}

func (t *SelectInstanceTransition) Validate(oldState []byte) error {
	return nil
}

type ChangeRootPathTransition struct {
	RootPath string `json:"root_path"`
}

func (t *ChangeRootPathTransition) Type() string {
	return TransitionChangeRootPath
}

func (t *ChangeRootPathTransition) Patch(oldState []byte) ([]byte, error) {
	return marshalPatch(JSONPatch{Op: "replace", Path: "/settings/root_path", Value: t.RootPath})
}

func (t *ChangeRootPathTransition) Validate(oldState []byte) error {
	return ValidateRootPath(t.RootPath)
}

type SetNicknameTransition struct {
	Nickname string `json:"nickname"`
}

func (t *SetNicknameTransition) Type() string {
	return TransitionSetNickname
}

func (t *SetNicknameTransition) Patch(oldState []byte) ([]byte, error) {
	return marshalPatch(JSONPatch{Op: "replace", Path: "/nickname", Value: t.Nickname})
}

func (t *SetNicknameTransition) Validate(oldState []byte) error {
	return ValidateNickname(t.Nickname)
}
