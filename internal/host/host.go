package host

import (
	"context"
	"fmt"
	"io"

	"github.com/google/shlex"
)

// Mapping is one region of a target's address space
type Mapping struct {
	Start  uint64
	End    uint64
	Perms  string // "rwxp" style
	Offset uint64
	Path   string // empty for anonymous mappings
}

func (m Mapping) Size() uint64 {
	return m.End - m.Start
}

func (m Mapping) Anonymous() bool {
	return m.Path == ""
}

func (m Mapping) Writable() bool {
	return len(m.Perms) > 1 && m.Perms[1] == 'w'
}

// Target is a debuggee known to the host: a live process or a core dump.
// Targets are compared with ==, so implementations must be pointer types.
type Target interface {
	ID() int
	Name() string

	// IsValid reports whether the target still exists
	IsValid() bool
	IsRunning() bool
	IsCoreDump() bool

	// Objfiles returns the paths of every object file mapped into the target
	Objfiles() ([]string, error)
	Mappings() ([]Mapping, error)
}

// Host is the debugger the heap commands are loaded into
type Host interface {
	Targets() []Target

	// SelectedTarget returns the target commands currently operate on
	SelectedTarget() (Target, error)

	// RegisterCommand adds cmd to the command table. Registering a name
	// that already exists replaces it, and registering a prefix command
	// drops every sub-command of that prefix.
	RegisterCommand(cmd *Command) error

	// DebugInfoLoaded reports whether debug symbols for the library pkg are
	// available in the selected target
	DebugInfoLoaded(pkg string) bool
}

// HookInstaller is implemented by hosts that can run a callback whenever a
// named command is executed. Hooks cannot be removed.
type HookInstaller interface {
	InstallHook(verb string, fn func())
}

// NativeEvents is implemented by hosts that report resumed execution
type NativeEvents interface {
	OnContinue(fn func()) (cancel func())
}

// Poster runs work on the host's privileged thread
type Poster interface {
	// Do runs fn on the privileged thread and waits for it to return
	Do(ctx context.Context, fn func()) error
}

// Prompter asks the operator a yes/no question
type Prompter interface {
	Confirm(question string) bool
}

type Category int

const (
	CategoryData Category = iota
	CategoryRunning
	CategoryStack
	CategoryFiles
	CategorySupport
	CategoryObscure
)

func (c Category) String() string {
	switch c {
	case CategoryData:
		return "data"
	case CategoryRunning:
		return "running"
	case CategoryStack:
		return "stack"
	case CategoryFiles:
		return "files"
	case CategorySupport:
		return "support"
	case CategoryObscure:
		return "obscure"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Completion selects how the host completes a command's arguments
type Completion int

const (
	CompleteNone Completion = iota
	CompleteFilename
	CompleteCommand
	CompleteTarget
)

// Command is a named, operator-invocable action
type Command struct {
	Name       string // space separated, e.g. "heap analyze"
	Category   Category
	Completion Completion
	Prefix     bool
	Doc        string
	Invoke     func(inv *Invocation) error
}

// Invocation carries the arguments and I/O of one command execution
type Invocation struct {
	Args    string
	FromTTY bool
	Out     io.Writer
	Prompt  Prompter
}

// Argv splits Args the way a shell would
func (inv *Invocation) Argv() ([]string, error) {
	argv, err := shlex.Split(inv.Args)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments %q: %w", inv.Args, err)
	}
	return argv, nil
}

func (inv *Invocation) Printf(format string, args ...any) {
	fmt.Fprintf(inv.Out, format, args...)
}

func (inv *Invocation) Println(args ...any) {
	fmt.Fprintln(inv.Out, args...)
}
