package launcher

import (
	"testing"

	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore map[string][]byte

func (m memoryStore) Get(key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memoryStore) PutAll(entries map[string][]byte) error {
	for k, v := range entries {
		m[k] = v
	}
	return nil
}

func TestNewDatabaseInitializesEmptyStore(t *testing.T) {
	store := memoryStore{}
	publisher := pubsub.NewSimplePublisher[hdb.StateUpdate]()
	db, err := NewDatabase(store, "/data/.coppebars", publisher)
	require.NoError(t, err)

	state, err := ReadState(db)
	require.NoError(t, err)
	assert.Equal(t, "/data/.coppebars", state.Settings.RootPath)
	assert.Equal(t, DefaultNickname, state.Nickname)

	for _, section := range Sections {
		assert.Contains(t, store, section)
	}
	assert.Equal(t, `null`, string(store["selected_instance"]))
}

func TestNewDatabaseRestoresSections(t *testing.T) {
	store := memoryStore{}
	db, err := NewDatabase(store, "/data/.coppebars", nil)
	require.NoError(t, err)

	_, err = db.ProposeTransitions([]hdb.Transition{
		&AddInstanceTransition{Instance: testInstance("a", "alpha")},
		&SelectInstanceTransition{ID: strPtr("a")},
		&SetNicknameTransition{Nickname: "Alex"},
	})
	require.NoError(t, err)

	// a different default root does not override the stored one
	restored, err := NewDatabase(store, "/elsewhere", nil)
	require.NoError(t, err)
	state, err := ReadState(restored)
	require.NoError(t, err)
	assert.Equal(t, "/data/.coppebars", state.Settings.RootPath)
	assert.Equal(t, "Alex", state.Nickname)
	require.NotNil(t, state.Selected())
	assert.Equal(t, "alpha", state.Selected().Name)
}

func TestNewDatabaseFallsBackPerSection(t *testing.T) {
	store := memoryStore{
		"nickname": []byte(`"Alex"`),
	}
	db, err := NewDatabase(store, "/data/.coppebars", nil)
	require.NoError(t, err)

	state, err := ReadState(db)
	require.NoError(t, err)
	assert.Equal(t, "Alex", state.Nickname)
	assert.Equal(t, "/data/.coppebars", state.Settings.RootPath)
	assert.Len(t, state.Instances, 0)
}

func TestNewDatabaseMigratesLegacySections(t *testing.T) {
	store := memoryStore{
		"instances": []byte(`[{"id":"a","name":"alpha","version":{"provider":"mojang","vid":"1.20.1"},"path":"/p/a","fullscreen":false,"width":1024,"height":768,"alloc":2048}]`),
		"settings":  []byte(`{"root_path":"/p"}`),
	}
	db, err := NewDatabase(store, "/data/.coppebars", nil)
	require.NoError(t, err)

	state, err := ReadState(db)
	require.NoError(t, err)
	assert.Equal(t, Resolution(1024, 768), state.Instances[0].Screen)
	assert.Equal(t, `"`+CurrentSchemaVersion+`"`, string(store["schema_version"]))
}
