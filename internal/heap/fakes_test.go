package heap

import (
	"bytes"
	"errors"
	"sort"
	"strings"

	"github.com/mabhi256/heapscope/internal/events"
	"github.com/mabhi256/heapscope/internal/host"
)

type fakeTarget struct {
	id       int
	name     string
	valid    bool
	running  bool
	core     bool
	mappings []host.Mapping
}

func newProcess(id int, name string) *fakeTarget {
	return &fakeTarget{id: id, name: name, valid: true, running: true}
}

func (t *fakeTarget) ID() int { return t.id }
func (t *fakeTarget) Name() string { return t.name }
func (t *fakeTarget) IsValid() bool { return t.valid }
func (t *fakeTarget) IsRunning() bool { return t.running }
func (t *fakeTarget) IsCoreDump() bool { return t.core }
func (t *fakeTarget) Objfiles() ([]string, error) { return nil, nil }
func (t *fakeTarget) Mappings() ([]host.Mapping, error) { return t.mappings, nil }

// fakeHost keeps a flat command table with the same prefix semantics as
// the real session
type fakeHost struct {
	targets   []host.Target
	selected  host.Target
	commands  map[string]*host.Command
	hooks     map[string][]func()
	debuginfo map[string]bool
	queries   int
	prompt    host.Prompter
}

func newFakeHost(targets ...host.Target) *fakeHost {
	h := &fakeHost{
		targets:   targets,
		commands:  make(map[string]*host.Command),
		hooks:     make(map[string][]func()),
		debuginfo: make(map[string]bool),
	}
	if len(targets) > 0 {
		h.selected = targets[0]
	}
	return h
}

func (h *fakeHost) Targets() []host.Target {
	return h.targets
}

func (h *fakeHost) SelectedTarget() (host.Target, error) {
	if h.selected == nil {
		return nil, errors.New("no target")
	}
	return h.selected, nil
}

func (h *fakeHost) RegisterCommand(cmd *host.Command) error {
	if cmd.Prefix {
		for name := range h.commands {
			if strings.HasPrefix(name, cmd.Name+" ") {
				delete(h.commands, name)
			}
		}
	}
	h.commands[cmd.Name] = cmd
	return nil
}

func (h *fakeHost) DebugInfoLoaded(pkg string) bool {
	h.queries++
	return h.debuginfo[pkg]
}

func (h *fakeHost) InstallHook(verb string, fn func()) {
	h.hooks[verb] = append(h.hooks[verb], fn)
}

// resume behaves like the operator typing verb
func (h *fakeHost) resume(verb string) {
	for _, fn := range h.hooks[verb] {
		fn()
	}
}

func (h *fakeHost) names() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// run executes line against the longest registered command name
func (h *fakeHost) run(line string) (string, error) {
	words := strings.Fields(line)
	for n := len(words); n > 0; n-- {
		cmd, ok := h.commands[strings.Join(words[:n], " ")]
		if !ok {
			continue
		}
		out := &bytes.Buffer{}
		inv := &host.Invocation{
			Args:    strings.Join(words[n:], " "),
			FromTTY: true,
			Out:     out,
			Prompt:  h.prompt,
		}
		err := cmd.Invoke(inv)
		return out.String(), err
	}
	return "", errors.New("undefined command " + line)
}

type answer bool

func (a answer) Confirm(string) bool {
	return bool(a)
}

type fakeAnalyzer struct {
	*Base
	desc      string
	verbs     []string
	pkg       string
	err       error
	analyses  int
	onAnalyze func()
}

func newFakeAnalyzer(target host.Target, verbs ...string) *fakeAnalyzer {
	return &fakeAnalyzer{Base: NewBase(target), desc: "fake 1.0", verbs: verbs}
}

func (a *fakeAnalyzer) Description() string {
	return a.desc
}

func (a *fakeAnalyzer) Analyze() error {
	a.analyses++
	if a.onAnalyze != nil {
		a.onAnalyze()
	}
	if a.err != nil {
		return a.err
	}
	a.MarkValid()
	return nil
}

func (a *fakeAnalyzer) ActivateVerbs(h host.Host, s *State) error {
	for _, verb := range a.verbs {
		cmd := AnalyzerCommand(s, a, verb, "fake command", a.pkg, func(inv *host.Invocation) error {
			inv.Println("ran " + verb)
			return nil
		})
		if err := h.RegisterCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// recorder builds detectors that log their name when called
type recorder struct {
	calls []string
}

func (r *recorder) detector(name string, fn Detector) NamedDetector {
	return NamedDetector{
		Name: name,
		Detect: func(t host.Target) (Analyzer, error) {
			r.calls = append(r.calls, name)
			return fn(t)
		},
	}
}

func notPresent(host.Target) (Analyzer, error) {
	return nil, ErrNotPresent
}

// newTestState builds a State on h with hook emulated continue events and
// the base commands registered
func newTestState(h *fakeHost, chain []NamedDetector) (*State, *bytes.Buffer) {
	out := &bytes.Buffer{}
	src := events.NewHookSource(h, events.ContinueVerbs)
	s := NewState(h, chain, src, WithOutput(out))
	s.ActivateBaseVerbs()
	return s, out
}

var baseNames = []string{"heap", "heap analyze", "heap info", "heap status"}
