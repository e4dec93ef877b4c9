package launcher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderDecoding(t *testing.T) {
	var v Version
	require.NoError(t, json.Unmarshal([]byte(`{"provider":"forge","vid":"x"}`), &v))
	assert.Equal(t, ProviderUnknown, v.Provider)

	require.NoError(t, json.Unmarshal([]byte(`{"provider":"local","vid":"x"}`), &v))
	assert.Equal(t, ProviderLocal, v.Provider)
}

func TestScreen(t *testing.T) {
	w, h := Fullscreen().Dimensions()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	w, h = Resolution(1920, 1080).Dimensions()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	b, err := json.Marshal(Fullscreen())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"fullscreen"}`, string(b))
}

func TestPatchApplyDoesNotAlias(t *testing.T) {
	inst := testInstance("a", "alpha")
	inst.ExtraArgs = []string{"-Dx=1"}

	name := "  spaced  "
	merged := (&InstancePatch{Name: &name}).Apply(inst)
	assert.Equal(t, "spaced", merged.Name)
	assert.Equal(t, "a", merged.ID)

	merged.ExtraArgs[0] = "changed"
	assert.Equal(t, "-Dx=1", inst.ExtraArgs[0])
	assert.Equal(t, "alpha", inst.Name)
}

func TestValidateDraft(t *testing.T) {
	draft := &InstanceDraft{
		Name:    "alpha",
		Version: Version{Provider: ProviderMojang, Vid: "1.20.1"},
		Screen:  Resolution(1280, 720),
		Alloc:   2048,
	}
	require.NoError(t, ValidateDraft(draft))

	bad := *draft
	bad.Name = "ab"
	bad.Alloc = 100000
	err := ValidateDraft(&bad)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "alloc")

	bad = *draft
	bad.Screen = Resolution(100, 100)
	require.Error(t, ValidateDraft(&bad))

	bad = *draft
	bad.Version.Provider = ProviderUnknown
	require.Error(t, ValidateDraft(&bad))

	require.Error(t, ValidateDraft(nil))

	bad = *draft
	bad.Path = "relative/dir"
	err = ValidateDraft(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")

	bad = *draft
	bad.Path = "/games/alpha"
	require.NoError(t, ValidateDraft(&bad))
}

func TestValidatePatchPath(t *testing.T) {
	empty := ""
	relative := "relative/dir"
	absolute := "/games/alpha"

	require.Error(t, ValidatePatch(&InstancePatch{Path: &empty}))
	require.Error(t, ValidatePatch(&InstancePatch{Path: &relative}))
	require.NoError(t, ValidatePatch(&InstancePatch{Path: &absolute}))
	require.NoError(t, ValidatePatch(&InstancePatch{}))
}

func TestParseExtraArgs(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []string
	}{
		{`  -Xss1M "-Dname=a b"   x `, []string{"-Xss1M", "-Dname=a b", "x"}},
		{`-Dfoo='a b' -Dbar=c`, []string{"-Dfoo=a b", "-Dbar=c"}},
		{`-Dpath=a\ b`, []string{"-Dpath=a b"}},
		{"", []string{}},
	} {
		got, err := ParseExtraArgs(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseExtraArgs(`-Dfoo="unterminated`)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}
