package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallCompletions(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		home := t.TempDir()
		assert.False(t, completionsExist(rootCmd, home, shell), shell)

		out := &bytes.Buffer{}
		require.NoError(t, installCompletions(rootCmd, home, shell, out), shell)
		assert.True(t, completionsExist(rootCmd, home, shell), shell)
		assert.Contains(t, out.String(), "Run this command", shell)

		config := completionConfigs(rootCmd, home)[shell]
		script, err := os.ReadFile(config.path())
		require.NoError(t, err)
		assert.Contains(t, string(script), binaryName, shell)
	}
}

func TestInstallCompletionsUnsupportedShell(t *testing.T) {
	home := t.TempDir()
	err := installCompletions(rootCmd, home, "tcsh", &bytes.Buffer{})
	assert.EqualError(t, err, "unsupported shell: tcsh")
	assert.False(t, completionsExist(rootCmd, home, "tcsh"))
	assert.False(t, isShellSupported("tcsh"))
}

func TestCompletionPaths(t *testing.T) {
	configs := completionConfigs(rootCmd, "/home/op")
	assert.Equal(t, "/home/op/.local/share/bash-completion/completions/heapscope", configs["bash"].path())
	assert.Equal(t, "/home/op/.zsh/completions/_heapscope", configs["zsh"].path())
	assert.Equal(t, "/home/op/.config/fish/completions/heapscope.fish", configs["fish"].path())
	assert.Equal(t, filepath.Join("/home/op", "heapscope_completion.ps1"), configs["powershell"].path())
}

func TestDetectShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("always powershell on windows")
	}

	t.Setenv("SHELL", "/usr/bin/zsh")
	assert.Equal(t, "zsh", detectShell())

	t.Setenv("SHELL", "")
	assert.Equal(t, "bash", detectShell())
}

func TestPrintPathInstructions(t *testing.T) {
	out := &bytes.Buffer{}
	printPathInstructions(out)
	assert.Contains(t, out.String(), "heapscope not in PATH")
}
