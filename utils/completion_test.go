package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCoreFileName(t *testing.T) {
	for _, name := range []string{"core", "core.1234", "app.core"} {
		assert.True(t, IsCoreFileName(name), name)
	}
	for _, name := range []string{"core.txt", "corefile", "main.go", ".core"} {
		assert.False(t, IsCoreFileName(name), name)
	}
}

func TestCompleteFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"core.1", "core.2", "notes.txt", ".core"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "cores"), 0o755))

	got := CompleteFiles(dir+"/co", IsCoreFileName)
	assert.Equal(t, []string{
		filepath.Join(dir, "core.1"),
		filepath.Join(dir, "core.2"),
		filepath.Join(dir, "cores") + "/",
	}, got)

	assert.Nil(t, CompleteFiles(filepath.Join(dir, "missing", "x"), IsCoreFileName))
}
