// Package session is a small debugger host: it keeps a list of targets
// (live processes and core dumps), a command table and a console to drive
// them. The heap commands are loaded into it.
package session

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mabhi256/heapscope/internal/host"
	"github.com/mabhi256/heapscope/utils"
)

var ErrNoTarget = errors.New("no target")

// Session is a host.Host. The target list and the continue subscribers are
// guarded by a mutex because the watcher and the event source reach them
// from their own goroutines; everything else runs on the privileged thread.
type Session struct {
	mu       sync.Mutex
	targets  []host.Target
	selected host.Target
	nextID   int

	cmds  *commandTable
	hooks map[string][]func()

	continueFns []func()

	out      io.Writer
	prompt   host.Prompter
	onRemove func(host.Target)
	onSelect func(host.Target)
	quit     bool

	// announced is the selection onSelect last heard about. It belongs to
	// the privileged thread.
	announced host.Target

	// debugRoot is where separate debug files are looked up
	debugRoot string
}

func New(out io.Writer) *Session {
	s := &Session{
		nextID:    1,
		cmds:      newCommandTable(),
		hooks:     make(map[string][]func()),
		out:       out,
		debugRoot: "/usr/lib/debug",
	}
	s.registerBuiltins()
	return s
}

// SetPrompter sets who answers confirmation questions
func (s *Session) SetPrompter(p host.Prompter) {
	s.prompt = p
}

// OnTargetRemoved sets the callback run when a target is removed for good
func (s *Session) OnTargetRemoved(fn func(host.Target)) {
	s.onRemove = fn
}

// OnSelectionChanged sets the callback run on the privileged thread when a
// command leaves a different target selected
func (s *Session) OnSelectionChanged(fn func(host.Target)) {
	s.onSelect = fn
}

// announceSelection hands the selection to onSelect if it moved since the
// last call
func (s *Session) announceSelection() {
	current, _ := s.SelectedTarget()
	if current == s.announced {
		return
	}
	s.announced = current
	if s.onSelect != nil {
		s.onSelect(current)
	}
}

func (s *Session) Out() io.Writer {
	return s.out
}

func (s *Session) Quit() bool {
	return s.quit
}

func (s *Session) allocID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// AddTarget appends t and selects it
func (s *Session) AddTarget(t host.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.targets = append(s.targets, t)
	s.selected = t
}

// Attach adds the live process pid as a new target
func (s *Session) Attach(pid int) (host.Target, error) {
	t, err := NewProcessTarget(s.allocID(), pid)
	if err != nil {
		return nil, err
	}
	s.AddTarget(t)
	return t, nil
}

// LoadCore adds the core dump at path as a new target
func (s *Session) LoadCore(path string) (host.Target, error) {
	t, err := OpenCore(s.allocID(), path)
	if err != nil {
		return nil, err
	}
	s.AddTarget(t)
	return t, nil
}

func (s *Session) Targets() []host.Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]host.Target, len(s.targets))
	copy(targets, s.targets)
	return targets
}

func (s *Session) SelectedTarget() (host.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil {
		return nil, ErrNoTarget
	}
	return s.selected, nil
}

func (s *Session) target(id int) (host.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.targets {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no target %d", id)
}

// Select makes the target with the given ID the selected one
func (s *Session) Select(id int) (host.Target, error) {
	t, err := s.target(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.selected = t
	s.mu.Unlock()
	return t, nil
}

// Remove drops the target with the given ID and reports it as gone
func (s *Session) Remove(id int) error {
	t, err := s.target(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for i, x := range s.targets {
		if x == t {
			s.targets = append(s.targets[:i], s.targets[i+1:]...)
			break
		}
	}
	if s.selected == t {
		s.selected = nil
		if len(s.targets) > 0 {
			s.selected = s.targets[0]
		}
	}
	s.mu.Unlock()

	if s.onRemove != nil {
		s.onRemove(t)
	}
	return nil
}

// reap removes processes that exited since the last command
func (s *Session) reap() {
	for _, t := range s.Targets() {
		if _, ok := t.(*ProcessTarget); !ok || t.IsValid() {
			continue
		}
		fmt.Fprintf(s.out, "[%s exited]\n", t.Name())
		s.Remove(t.ID())
	}
}

func (s *Session) RegisterCommand(cmd *host.Command) error {
	return s.cmds.register(cmd)
}

// InstallHook runs fn before every execution of verb
func (s *Session) InstallHook(verb string, fn func()) {
	s.hooks[verb] = append(s.hooks[verb], fn)
}

// Execute runs one console line on the privileged thread
func (s *Session) Execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	s.reap()
	s.announceSelection()
	defer s.announceSelection()

	cmd, args, ok := s.cmds.lookup(line)
	if !ok {
		word, _ := nextWord(line)
		s.printError(fmt.Errorf("Undefined command: %q. Try \"help\".", word))
		return
	}

	for _, hook := range s.hooks[cmd.Name] {
		hook()
	}

	inv := &host.Invocation{
		Args:    args,
		FromTTY: true,
		Out:     s.out,
		Prompt:  s.prompt,
	}
	if err := cmd.Invoke(inv); err != nil {
		s.printError(err)
	}
}

func (s *Session) printError(err error) {
	fmt.Fprintln(s.out, utils.WarningLightStyle.Render(err.Error()))
}

// fireContinue tells native subscribers that the selected target resumed
func (s *Session) fireContinue() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.continueFns))
	for _, fn := range s.continueFns {
		if fn != nil {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// DebugInfoLoaded reports whether the first object file of the selected
// target named after pkg carries DWARF, or has a separate debug file
func (s *Session) DebugInfoLoaded(pkg string) bool {
	t, err := s.SelectedTarget()
	if err != nil {
		return false
	}
	objfiles, err := t.Objfiles()
	if err != nil {
		return false
	}

	for _, path := range objfiles {
		base := filepath.Base(path)
		if !strings.HasPrefix(base, pkg+".") && !strings.HasPrefix(base, pkg+"-") {
			continue
		}
		return s.hasDebugInfo(path)
	}
	return false
}

func (s *Session) hasDebugInfo(path string) bool {
	if _, err := os.Stat(filepath.Join(s.debugRoot, path+".debug")); err == nil {
		return true
	}

	f, err := elf.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	if f.Section(".debug_info") != nil {
		return true
	}

	// Separate debug files are also found by build ID
	note := f.Section(".note.gnu.build-id")
	if note == nil {
		return false
	}
	data, err := note.Data()
	if err != nil || len(data) < 16 {
		return false
	}
	id := fmt.Sprintf("%x", data[16:])
	if len(id) < 3 {
		return false
	}
	_, err = os.Stat(filepath.Join(s.debugRoot, ".build-id", id[:2], id[2:]+".debug"))
	return err == nil
}

// Native wraps s so it also reports resumed execution natively
func (s *Session) Native() *NativeSession {
	return &NativeSession{Session: s}
}

// NativeSession is a Session with a native continue event
type NativeSession struct {
	*Session
}

func (ns *NativeSession) OnContinue(fn func()) (cancel func()) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	ns.continueFns = append(ns.continueFns, fn)
	idx := len(ns.continueFns) - 1
	return func() {
		ns.mu.Lock()
		defer ns.mu.Unlock()
		ns.continueFns[idx] = nil
	}
}

var (
	_ host.Host          = (*Session)(nil)
	_ host.HookInstaller = (*Session)(nil)
	_ host.NativeEvents  = (*NativeSession)(nil)
)
