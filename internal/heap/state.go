package heap

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/mabhi256/heapscope/internal/events"
	"github.com/mabhi256/heapscope/internal/host"
)

// entry is the bookkeeping for one target. A target missing from the map
// is the same as an Unanalyzed entry.
type entry struct {
	slot     Slot
	listener *invalidator
}

// invalidator marks one analyzer stale when its target resumes
type invalidator struct {
	state    *State
	analyzer Analyzer
}

func (inv *invalidator) OnContinue(events.ContinueEvent) {
	inv.state.Invalidate(inv.analyzer)
}

// State maps every target to its heap analysis and keeps the host's heap
// commands in step with the selected target. Exported methods take the
// lock for their whole duration; the *Locked helpers expect it held, so
// nested calls go through them rather than the exported API.
type State struct {
	mu      sync.Mutex
	host    host.Host
	chain   []NamedDetector
	events  events.ContinueSource
	entries map[host.Target]*entry
	debug   *DebugInfoCache
	out     io.Writer
}

type Option func(*State)

// WithOutput sets where detection messages for the operator are written
func WithOutput(w io.Writer) Option {
	return func(s *State) {
		s.out = w
	}
}

// WithDebugInfoCache replaces the per-package debug symbol cache
func WithDebugInfoCache(c *DebugInfoCache) Option {
	return func(s *State) {
		s.debug = c
	}
}

func NewState(h host.Host, chain []NamedDetector, src events.ContinueSource, opts ...Option) *State {
	s := &State{
		host:    h,
		chain:   chain,
		events:  src,
		entries: make(map[host.Target]*entry),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.debug == nil {
		s.debug = NewDebugInfoCache(h.DebugInfoLoaded)
	}

	for _, t := range h.Targets() {
		s.entries[t] = &entry{}
	}
	return s
}

func (s *State) Host() host.Host {
	return s.host
}

func (s *State) DebugInfo() *DebugInfoCache {
	return s.debug
}

func (s *State) entryLocked(t host.Target) *entry {
	e, ok := s.entries[t]
	if !ok {
		debugf("heap: first sighting of target %d (%s)", t.ID(), t.Name())
		e = &entry{}
		s.entries[t] = e
	}
	return e
}

func (s *State) selectedLocked() (host.Target, error) {
	t, err := s.host.SelectedTarget()
	if err != nil {
		return nil, fmt.Errorf("no target selected: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("no target selected")
	}
	return t, nil
}

// CurrentSlot returns the slot of the selected target without running
// detection
func (s *State) CurrentSlot() (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.selectedLocked()
	if err != nil {
		return Slot{}, err
	}
	return s.entryLocked(t).slot, nil
}

// DetectHeap runs the detector chain for the selected target, stores the
// result and activates the analyzer's commands if one was found. The
// selected target must not have been analyzed before; calling it otherwise
// panics with a *ProgrammingError.
func (s *State) DetectHeap() (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.selectedLocked()
	if err != nil {
		return Slot{}, err
	}

	e := s.entryLocked(t)
	if e.slot.Kind != Unanalyzed {
		programmingError("DetectHeap called for target %d which is already %s", t.ID(), e.slot.Kind)
	}

	slot := RunDetectors(s.chain, t, func(msg string) {
		fmt.Fprintln(s.out, msg)
	})
	e.slot = slot

	if slot.Kind != Analyzed {
		infof("heap: no supported heap implementation in target %d", t.ID())
		return slot, nil
	}

	e.listener = &invalidator{state: s, analyzer: slot.Analyzer}
	if s.events != nil {
		s.events.Subscribe(e.listener)
	}

	if err := slot.Analyzer.ActivateVerbs(s.host, s); err != nil {
		return slot, fmt.Errorf("failed to activate %s commands: %w", slot.Analyzer.Description(), err)
	}
	return slot, nil
}

// Analyze (re)computes a's analysis. An invalidation that arrives while
// the analysis runs is applied after it, leaving a invalid.
func (s *State) Analyze(a Analyzer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	debugf("heap: analyzing target %d", a.Target().ID())
	if err := a.Analyze(); err != nil {
		return fmt.Errorf("heap analysis of %s failed: %w", a.Target().Name(), err)
	}
	return nil
}

// OnTargetChange resets the command surface to the base commands and then
// activates the commands of t's analyzer, if it has one
func (s *State) OnTargetChange(t host.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activateBaseVerbsLocked()
	if t == nil {
		return nil
	}

	e := s.entryLocked(t)
	if e.slot.Kind != Analyzed {
		debugf("heap: switched to target %d (%s)", t.ID(), e.slot.Kind)
		return nil
	}

	debugf("heap: switched to target %d, activating %s commands", t.ID(), e.slot.Analyzer.Description())
	return e.slot.Analyzer.ActivateVerbs(s.host, s)
}

// Invalidate marks a stale. Commands stay registered; running them is
// what checks validity.
func (s *State) Invalidate(a Analyzer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.IsValid() {
		debugf("heap: invalidating analysis of target %d", a.Target().ID())
	}
	a.Invalidate()
}

// Forget drops everything known about a target the host removed for good
func (s *State) Forget(t host.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[t]
	if !ok {
		return
	}
	if e.listener != nil && s.events != nil {
		if err := s.events.Unsubscribe(e.listener); err != nil {
			warnf("heap: forgetting target %d: %v", t.ID(), err)
		}
	}
	delete(s.entries, t)
	infof("heap: forgot target %d", t.ID())
}

// TargetSlot pairs a target with its slot
type TargetSlot struct {
	Target   host.Target
	Slot     Slot
	Selected bool
}

// Slots returns every known target, ordered by target ID
func (s *State) Slots() []TargetSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected, _ := s.host.SelectedTarget()

	slots := make([]TargetSlot, 0, len(s.entries))
	for t, e := range s.entries {
		slots = append(slots, TargetSlot{
			Target:   t,
			Slot:     e.slot,
			Selected: selected != nil && t == selected,
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Target.ID() < slots[j].Target.ID()
	})
	return slots
}

// ActivateBaseVerbs registers the base heap commands, discarding any
// allocator commands registered before
func (s *State) ActivateBaseVerbs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activateBaseVerbsLocked()
}

func (s *State) activateBaseVerbsLocked() {
	for _, cmd := range baseCommands(s) {
		if err := s.host.RegisterCommand(cmd); err != nil {
			programmingError("registering %q: %v", cmd.Name, err)
		}
	}
}
