package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const binaryName = "heapscope"

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install shell completions",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !isInPath() {
			printPathInstructions(out)
			return
		}

		shell := detectShell()
		if !isShellSupported(shell) {
			fmt.Fprintf(out, "❌ Shell completion not supported for: %s\n", shell)
			fmt.Fprintln(out, "Supported shells: bash, zsh, fish, powershell")
			return
		}

		home, _ := os.UserHomeDir()
		if completionsExist(cmd.Root(), home, shell) {
			fmt.Fprintln(out, "✅ Already configured!")
			return
		}

		fmt.Fprintln(out, "📦 Installing completions...")
		if err := installCompletions(cmd.Root(), home, shell, out); err != nil {
			fmt.Fprintf(out, "❌ Failed: %v\n", err)
		} else {
			fmt.Fprintln(out, "✅ Done! Restart your shell to enable tab completion.")
		}
	},
}

// firstRunSetup installs completions the first time heapscope runs in an
// interactive shell
func firstRunSetup(cmd *cobra.Command) {
	switch cmd.Name() {
	case "install", "version", "help", "completion",
		cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}

	shell := detectShell()
	if !isShellSupported(shell) {
		return
	}

	home, _ := os.UserHomeDir()
	if completionsExist(cmd.Root(), home, shell) {
		return
	}

	fmt.Printf("🔧 First run detected, setting up %s...\n", binaryName)
	if installCompletions(cmd.Root(), home, shell, os.Stdout) == nil {
		fmt.Println("✅ Shell completions installed")
		fmt.Println("💡 Restart your shell to enable tab completion")
	} else {
		fmt.Printf("⚠️  Auto-setup failed. Run '%s install' to try again.\n", binaryName)
	}
}

func isShellSupported(shell string) bool {
	return shell == "bash" || shell == "zsh" || shell == "fish" || shell == "powershell"
}

func detectShell() string {
	if runtime.GOOS == "windows" {
		return "powershell"
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		return "bash"
	}
	return filepath.Base(shell)
}

type completionConfig struct {
	dir         string
	file        string
	genFunc     func(io.Writer) error
	activateCmd string
}

func (c completionConfig) path() string {
	return filepath.Join(c.dir, c.file)
}

func completionConfigs(root *cobra.Command, home string) map[string]completionConfig {
	bashDir := filepath.Join(home, ".local/share/bash-completion/completions")
	zshDir := filepath.Join(home, ".zsh/completions")

	return map[string]completionConfig{
		"bash": {
			dir:         bashDir,
			file:        binaryName,
			genFunc:     root.GenBashCompletion,
			activateCmd: "source " + filepath.Join(bashDir, binaryName),
		},
		"zsh": {
			dir:         zshDir,
			file:        "_" + binaryName,
			genFunc:     root.GenZshCompletion,
			activateCmd: fmt.Sprintf("fpath=(%s $fpath) && autoload -U compinit && compinit", zshDir),
		},
		"fish": {
			dir:         filepath.Join(home, ".config/fish/completions"),
			file:        binaryName + ".fish",
			genFunc:     func(w io.Writer) error { return root.GenFishCompletion(w, true) },
			activateCmd: "complete --do-complete=" + binaryName,
		},
		"powershell": {
			dir:         home,
			file:        binaryName + "_completion.ps1",
			genFunc:     root.GenPowerShellCompletionWithDesc,
			activateCmd: ". " + filepath.Join(home, binaryName+"_completion.ps1"),
		},
	}
}

func completionsExist(root *cobra.Command, home, shell string) bool {
	config, ok := completionConfigs(root, home)[shell]
	if !ok {
		return false
	}
	_, err := os.Stat(config.path())
	return err == nil
}

func installCompletions(root *cobra.Command, home, shell string, out io.Writer) error {
	config, ok := completionConfigs(root, home)[shell]
	if !ok {
		return fmt.Errorf("unsupported shell: %s", shell)
	}

	if err := os.MkdirAll(config.dir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(config.path())
	if err != nil {
		return err
	}
	defer file.Close()

	if err := config.genFunc(file); err != nil {
		return err
	}

	fmt.Fprintln(out, "🔄 Run this command to enable completions now:")
	fmt.Fprintf(out, "   %s\n", config.activateCmd)
	return nil
}

func isInPath() bool {
	execPath, err := os.Executable()
	if err != nil {
		return false
	}

	paths := strings.Split(os.Getenv("PATH"), string(os.PathListSeparator))
	return slices.Contains(paths, filepath.Dir(execPath))
}

func printPathInstructions(out io.Writer) {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	fmt.Fprintf(out, "❌ %s not in PATH. Binary location: %s\n\n", binaryName, execPath)

	if runtime.GOOS == "windows" {
		fmt.Fprintf(out, "Add to PATH: %s\n", execDir)
	} else {
		fmt.Fprintf(out, "Add to shell profile: export PATH=\"%s:$PATH\"\n", execDir)
		fmt.Fprintln(out, "Or copy to: /usr/local/bin")
	}
}

func init() {
	rootCmd.AddCommand(installCmd)
}
