package initcmd

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/proj/.gitignore", []byte("bin/"), 0o644))

	out := &bytes.Buffer{}
	require.NoError(t, Run(fsys, out, "/proj", ".rehearsal", false))

	for _, p := range []string{"/proj/.rehearsal/setting.json", "/proj/.rehearsal/scenes/coffee_order.yaml"} {
		ok, err := afero.Exists(fsys, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	gitignore, err := afero.ReadFile(fsys, "/proj/.gitignore")
	require.NoError(t, err)
	assert.Equal(t, "bin/\n\n# >>> rehearsal\n/.rehearsal/rehearsal.db*\n/.rehearsal/.env\n# <<< rehearsal\n", string(gitignore))
	assert.Contains(t, out.String(), "WROTE: /proj/.rehearsal/setting.json")

	// Second run keeps existing files and does not duplicate the block
	out.Reset()
	require.NoError(t, Run(fsys, out, "/proj", ".rehearsal", false))
	assert.Contains(t, out.String(), "SKIP: /proj/.rehearsal/setting.json")
	assert.Contains(t, out.String(), "SKIP: .gitignore rehearsal block already present")
}

func TestRun_AbsoluteHomeSkipsGitignore(t *testing.T) {
	fsys := afero.NewMemMapFs()
	out := &bytes.Buffer{}
	require.NoError(t, Run(fsys, out, "/proj", "/var/lib/rehearsal", false))

	ok, err := afero.Exists(fsys, "/var/lib/rehearsal/setting.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = afero.Exists(fsys, "/proj/.gitignore")
	require.NoError(t, err)
	assert.False(t, ok)
}
