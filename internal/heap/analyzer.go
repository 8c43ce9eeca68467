// Package heap tracks one heap analyzer per debugged target, detects which
// allocator a target uses and keeps the "heap" command surface in step with
// the selected target.
package heap

import (
	"sync/atomic"

	"github.com/mabhi256/heapscope/internal/host"
)

// Analyzer is the allocator specific analysis of one target's heap
type Analyzer interface {
	Target() host.Target

	// IsValid reports whether the analysis still matches the target. It
	// turns false once the target resumes.
	IsValid() bool
	Invalidate()

	// Analyze recomputes the analysis and marks it valid on success
	Analyze() error

	// Description names the allocator and its version
	Description() string

	// ActivateVerbs registers the allocator's commands with the host
	ActivateVerbs(h host.Host, s *State) error
}

// Base holds the state every analyzer shares. Analyzers embed a *Base.
type Base struct {
	target host.Target
	valid  atomic.Bool
}

func NewBase(target host.Target) *Base {
	return &Base{target: target}
}

func (b *Base) Target() host.Target {
	return b.target
}

func (b *Base) IsValid() bool {
	return b.valid.Load()
}

func (b *Base) Invalidate() {
	b.valid.Store(false)
}

// MarkValid is called by Analyze implementations once they succeed
func (b *Base) MarkValid() {
	b.valid.Store(true)
}

type SlotKind int

const (
	Unanalyzed SlotKind = iota
	Unsupported
	Analyzed
)

func (k SlotKind) String() string {
	switch k {
	case Unanalyzed:
		return "unanalyzed"
	case Unsupported:
		return "unsupported"
	case Analyzed:
		return "analyzer"
	default:
		return "unknown"
	}
}

// Slot is what is known about a target's heap. Analyzer is set only when
// Kind is Analyzed.
type Slot struct {
	Kind     SlotKind
	Analyzer Analyzer
}

func UnsupportedSlot() Slot {
	return Slot{Kind: Unsupported}
}

func AnalyzerSlot(a Analyzer) Slot {
	return Slot{Kind: Analyzed, Analyzer: a}
}

func (s Slot) String() string {
	if s.Kind == Analyzed && s.Analyzer != nil {
		return s.Analyzer.Description()
	}
	return s.Kind.String()
}
