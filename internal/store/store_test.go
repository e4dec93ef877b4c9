package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "launcher.db")
	s, err := Open(path)
	require.NoError(t, err)

	_, ok, err := s.Get("instances")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("instances", []byte(`[]`)))
	require.NoError(t, s.Put("instances", []byte(`[{"id":"a"}]`)))
	require.NoError(t, s.Put("nickname", []byte(`"Player"`)))

	v, ok, err := s.Get("instances")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(v))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"instances", "nickname"}, keys)

	require.NoError(t, s.Delete("nickname"))
	_, ok, err = s.Get("nickname")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Close())

	// values survive reopening
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err = s.Get("instances")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(v))
}

func TestPutAll(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "launcher.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("nickname", []byte(`"Player"`)))
	require.NoError(t, s.PutAll(map[string][]byte{
		"instances": []byte(`[]`),
		"nickname":  []byte(`"Steve"`),
	}))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"instances", "nickname"}, keys)

	v, _, err := s.Get("nickname")
	require.NoError(t, err)
	assert.Equal(t, `"Steve"`, string(v))

	require.NoError(t, s.Close())
	require.Error(t, s.PutAll(map[string][]byte{"instances": []byte(`[1]`)}))
}
