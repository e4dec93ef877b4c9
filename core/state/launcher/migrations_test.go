package launcher

import (
	"encoding/json"
	"testing"

	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	err := validateMigrations()
	assert.Nil(t, err)
}

func TestMigrateLegacyState(t *testing.T) {
	legacy := []byte(`{
		"instances": [
			{
				"id": "a",
				"name": "alpha",
				"version": {"provider": "mojang", "vid": "1.20.1", "mcv": "1.20.1"},
				"path": "/p/a",
				"fullscreen": true,
				"width": 1920,
				"height": 1080,
				"alloc": 2048
			},
			{
				"id": "b",
				"name": "beta",
				"version": {"provider": "local", "vid": "fabric"},
				"path": "/p/b",
				"fullscreen": false,
				"width": 1024,
				"height": 768,
				"alloc": 4096,
				"extra_args": "-Dfoo=bar \"-Dname=a b\""
			}
		],
		"selected_instance": "b",
		"settings": {"root_path": "/p"},
		"nickname": "Player"
	}`)

	migrated, applied, err := Migrate(legacy)
	require.NoError(t, err)
	assert.Equal(t, []string{"v0.2.0"}, applied)

	// the result satisfies the current schema
	_, err = hdb.NewJSONState((&LauncherSchema{}).Bytes(), migrated)
	require.NoError(t, err)

	var state LauncherState
	require.NoError(t, json.Unmarshal(migrated, &state))
	assert.Equal(t, CurrentSchemaVersion, state.SchemaVersion)
	require.Len(t, state.Instances, 2)
	assert.Equal(t, Fullscreen(), state.Instances[0].Screen)
	assert.Equal(t, Resolution(1024, 768), state.Instances[1].Screen)
	assert.Equal(t, []string{"-Dfoo=bar", "-Dname=a b"}, state.Instances[1].ExtraArgs)
	assert.Equal(t, "b", state.Selected().ID)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(migrated, &raw))
	first := raw["instances"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, first, "fullscreen")
	assert.NotContains(t, first, "width")
}

func TestMigrateCurrentStateIsUnchanged(t *testing.T) {
	state, err := (&LauncherSchema{}).InitState("/p")
	require.NoError(t, err)
	b, err := state.Bytes()
	require.NoError(t, err)

	migrated, applied, err := Migrate(b)
	require.NoError(t, err)
	assert.Len(t, applied, 0)
	assert.JSONEq(t, string(b), string(migrated))
}

func TestMigrateRejectsNewerVersion(t *testing.T) {
	_, _, err := Migrate([]byte(`{"schema_version": "v9.0.0"}`))
	require.Error(t, err)

	_, _, err = Migrate([]byte(`{"schema_version": "latest"}`))
	require.Error(t, err)
}
