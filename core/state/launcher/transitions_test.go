package launcher

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransitions(oldState *LauncherState, transitions []hdb.Transition) (*LauncherState, error) {
	var oldJSONState *hdb.JSONState
	schema := &LauncherSchema{}
	if oldState == nil {
		emptyState, err := schema.InitState("/home/player/.coppebars")
		if err != nil {
			return nil, err
		}
		ojs, err := hdb.StateToJSONState(emptyState)
		if err != nil {
			return nil, err
		}
		oldJSONState = ojs
	} else {
		ojs, err := hdb.StateToJSONState(oldState)
		if err != nil {
			return nil, err
		}
		oldJSONState = ojs
	}

	for _, t := range transitions {
		err := t.Validate(oldJSONState.Bytes())
		if err != nil {
			return nil, fmt.Errorf("transition validation failed: %w", err)
		}

		patch, err := t.Patch(oldJSONState.Bytes())
		if err != nil {
			return nil, err
		}

		newStateBytes, err := oldJSONState.ValidatePatch(patch)
		if err != nil {
			return nil, err
		}

		newState, err := hdb.NewJSONState(schema.Bytes(), newStateBytes)
		if err != nil {
			return nil, err
		}
		oldJSONState = newState
	}

	var state LauncherState
	err := json.Unmarshal(oldJSONState.Bytes(), &state)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func testInstance(id, name string) *Instance {
	return &Instance{
		ID:      id,
		Name:    name,
		Version: Version{Provider: ProviderMojang, Vid: "1.20.1", Mcv: "1.20.1"},
		Path:    "/home/player/.coppebars/instances/" + name,
		Screen:  Resolution(1280, 720),
		Alloc:   2048,
	}
}

func strPtr(s string) *string {
	return &s
}

func TestInitialization(t *testing.T) {
	state, err := testTransitions(nil, []hdb.Transition{
		&InitializationTransition{
			InitState: &LauncherState{
				Settings: Settings{RootPath: "/data/.coppebars"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, state.SchemaVersion)
	assert.Equal(t, "/data/.coppebars", state.Settings.RootPath)
	assert.Equal(t, DefaultNickname, state.Nickname)
	assert.Len(t, state.Instances, 0)
	assert.Nil(t, state.SelectedInstance)

	_, err = testTransitions(nil, []hdb.Transition{&InitializationTransition{}})
	require.Error(t, err)
}

func TestAddInstance(t *testing.T) {
	state, err := testTransitions(nil, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&AddInstanceTransition{Instance: testInstance("b", "beta")},
	})
	require.NoError(t, err)
	require.Len(t, state.Instances, 2)
	assert.Equal(t, "a", state.Instances[0].ID)
	assert.Equal(t, "beta", state.Instances[1].Name)

	_, err = testTransitions(state, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "again")},
	})
	require.Error(t, err)

	_, err = testTransitions(state, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("", "noid")},
	})
	require.Error(t, err)
}

func TestUpdateInstance(t *testing.T) {
	alloc := 4096
	screen := Fullscreen()
	state, err := testTransitions(nil, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&AddInstanceTransition{Instance: testInstance("b", "beta")},
		&UpdateInstanceTransition{
			ID: "b",
			Changes: &InstancePatch{
				Name:   strPtr("renamed"),
				Alloc:  &alloc,
				Screen: &screen,
			},
		},
	})
	require.NoError(t, err)

	b, ok := state.GetInstance("b")
	require.True(t, ok)
	assert.Equal(t, "b", b.ID)
	assert.Equal(t, "renamed", b.Name)
	assert.Equal(t, 4096, b.Alloc)
	assert.True(t, b.Screen.IsFullscreen())
	// unspecified fields are kept
	assert.Equal(t, "1.20.1", b.Version.Vid)
	assert.Equal(t, "/home/player/.coppebars/instances/beta", b.Path)

	a, ok := state.GetInstance("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", a.Name)
}

func TestUpdateUnknownInstanceIsNoop(t *testing.T) {
	state, err := testTransitions(nil, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&UpdateInstanceTransition{ID: "missing", Changes: &InstancePatch{Name: strPtr("other")}},
	})
	require.NoError(t, err)
	require.Len(t, state.Instances, 1)
	assert.Equal(t, "alpha", state.Instances[0].Name)
}

func TestUpdateInstanceRejectsInvalidFields(t *testing.T) {
	alloc := 100
	_, err := testTransitions(nil, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&UpdateInstanceTransition{ID: "a", Changes: &InstancePatch{Alloc: &alloc}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestUpdateExtraArgs(t *testing.T) {
	args := []string{"-XX:+UseG1GC", "-Dfoo=bar"}
	state, err := testTransitions(nil, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&UpdateInstanceTransition{ID: "a", Changes: &InstancePatch{ExtraArgs: &args}},
	})
	require.NoError(t, err)
	assert.Equal(t, args, state.Instances[0].ExtraArgs)

	empty := []string{}
	state, err = testTransitions(state, []hdb.Transition{
		&UpdateInstanceTransition{ID: "a", Changes: &InstancePatch{ExtraArgs: &empty}},
	})
	require.NoError(t, err)
	assert.Nil(t, state.Instances[0].ExtraArgs)
}

func TestSelectInstance(t *testing.T) {
	state, err := testTransitions(nil, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&SelectInstanceTransition{ID: strPtr("a")},
	})
	require.NoError(t, err)
	require.NotNil(t, state.Selected())
	assert.Equal(t, "a", state.Selected().ID)

	state, err = testTransitions(state, []hdb.Transition{
		&SelectInstanceTransition{ID: strPtr("zzz")},
	})
	require.NoError(t, err)
	assert.Nil(t, state.SelectedInstance)
	assert.Nil(t, state.Selected())

	state, err = testTransitions(state, []hdb.Transition{
		&SelectInstanceTransition{ID: strPtr("a")},
		&SelectInstanceTransition{ID: nil},
	})
	require.NoError(t, err)
	assert.Nil(t, state.Selected())
}

func TestRemoveInstance(t *testing.T) {
	state, err := testTransitions(nil, []hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&AddInstanceTransition{Instance: testInstance("b", "beta")},
		&SelectInstanceTransition{ID: strPtr("b")},
		&RemoveInstanceTransition{ID: "a"},
	})
	require.NoError(t, err)
	require.Len(t, state.Instances, 1)
	assert.Equal(t, "b", state.Selected().ID)

	state, err = testTransitions(state, []hdb.Transition{
		&RemoveInstanceTransition{ID: "b"},
	})
	require.NoError(t, err)
	assert.Len(t, state.Instances, 0)
	assert.Nil(t, state.SelectedInstance)
	assert.Nil(t, state.Selected())

	// absent ids are a no-op
	state, err = testTransitions(state, []hdb.Transition{
		&RemoveInstanceTransition{ID: "b"},
	})
	require.NoError(t, err)
	assert.Len(t, state.Instances, 0)
}

func TestSelectedResolvesDanglingToNil(t *testing.T) {
	state := &LauncherState{
		Instances:        []*Instance{testInstance("a", "alpha")},
		SelectedInstance: strPtr("gone"),
	}
	assert.Nil(t, state.Selected())
}

func TestSettingsTransitions(t *testing.T) {
	state, err := testTransitions(nil, []hdb.Transition{
		&ChangeRootPathTransition{RootPath: "/opt/minecraft"},
		&SetNicknameTransition{Nickname: "Steve"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/opt/minecraft", state.Settings.RootPath)
	assert.Equal(t, "Steve", state.Nickname)

	_, err = testTransitions(state, []hdb.Transition{
		&ChangeRootPathTransition{RootPath: "relative/path"},
	})
	require.Error(t, err)

	_, err = testTransitions(state, []hdb.Transition{
		&SetNicknameTransition{Nickname: "  "},
	})
	require.Error(t, err)
}
