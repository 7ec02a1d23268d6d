package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	opts := Default()
	assert.True(t, opts.UnitBugFix.Enabled)
	assert.Equal(t, 1000.0, opts.UnitBugFix.Threshold)
	assert.Equal(t, 100.0, opts.UnitBugFix.Divisor)
	assert.Zero(t, opts.Start)
	assert.NoError(t, opts.Validate())
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bella.toml")
	doc := `
start = 10
end = 12
colorDome = true
hiddenContainers = ["Rig", "Guides"]

[unitBugFix]
threshold = 5000.0
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, opts.Start)
	assert.Equal(t, 12, opts.End)
	assert.True(t, opts.ColorDome)
	assert.Equal(t, []string{"Rig", "Guides"}, opts.HiddenContainers)
	assert.Equal(t, 5000.0, opts.UnitBugFix.Threshold)
	// untouched keys of a partially written table keep their defaults
	assert.True(t, opts.UnitBugFix.Enabled)
	assert.Equal(t, 100.0, opts.UnitBugFix.Divisor)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bella.toml")
	require.NoError(t, os.WriteFile(path, []byte("colordome = true\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colordome")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	opts := Default()
	opts.Start = -1
	opts.Subdivision = -2
	opts.UnitBugFix.Divisor = 0
	err := opts.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start frame -1")
	assert.Contains(t, err.Error(), "subdivision level -2")
	assert.Contains(t, err.Error(), "divisor")

	// a disabled policy may carry any divisor
	opts = Default()
	opts.UnitBugFix.Enabled = false
	opts.UnitBugFix.Divisor = 0
	assert.NoError(t, opts.Validate())
}

func TestFrames(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
		frames     []int
		sequence   bool
	}{
		{"single", 0, 0, []int{1}, false},
		{"single ignores end", 0, 20, []int{1}, false},
		{"one frame sequence", 5, 0, []int{5}, true},
		{"end before start", 5, 3, []int{5}, true},
		{"range", 3, 6, []int{3, 4, 5, 6}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Default()
			opts.Start, opts.End = tc.start, tc.end
			frames, seq := opts.Frames()
			assert.Equal(t, tc.frames, frames)
			assert.Equal(t, tc.sequence, seq)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	opts := Default()
	opts.Start, opts.End = 1, 48
	opts.SkipRoughness = true
	opts.HiddenContainers = []string{"Guides"}

	data, err := Encode(opts)
	require.NoError(t, err)

	got := Default()
	require.NoError(t, Decode(data, &got))
	assert.Equal(t, opts, got)
}
