package heap

import (
	"errors"
	"strings"
	"sync"

	"github.com/mabhi256/heapscope/internal/host"
)

// Handler is the body of a heap command
type Handler func(inv *host.Invocation) error

// Gate checks a precondition before running the next handler
type Gate func(next Handler) Handler

// Gated wraps h so the gates run in the order given
func Gated(h Handler, gates ...Gate) Handler {
	for i := len(gates) - 1; i >= 0; i-- {
		h = gates[i](h)
	}
	return h
}

// NoArgs rejects invocations with arguments
func NoArgs(next Handler) Handler {
	return func(inv *host.Invocation) error {
		if strings.TrimSpace(inv.Args) != "" {
			return ErrTakesNoArguments
		}
		return next(inv)
	}
}

// RequireRunningOrCore only runs the command when the selected target is a
// live process or a core dump. msg is reported otherwise.
func RequireRunningOrCore(h host.Host, msg string) Gate {
	return func(next Handler) Handler {
		return func(inv *host.Invocation) error {
			t, err := h.SelectedTarget()
			if err != nil || t == nil || (!t.IsRunning() && !t.IsCoreDump()) {
				return errors.New(msg)
			}
			return next(inv)
		}
	}
}

// RequireValidAnalyzer refuses to serve stale heap information
func RequireValidAnalyzer(a Analyzer) Gate {
	return func(next Handler) Handler {
		return func(inv *host.Invocation) error {
			if !a.IsValid() {
				return ErrInvalidAnalyzer
			}
			return next(inv)
		}
	}
}

// RequireDebugInfo only runs the command when debug symbols for pkg are
// loaded. The answer is looked up once per package and then reused.
func RequireDebugInfo(cache *DebugInfoCache, pkg string) Gate {
	return func(next Handler) Handler {
		return func(inv *host.Invocation) error {
			if !cache.Loaded(pkg) {
				return &MissingDebugInfoError{Package: pkg}
			}
			return next(inv)
		}
	}
}

// DebugInfoCache remembers whether debug symbols were found per package.
// Entries are never invalidated, negative answers included, so symbols
// installed after the first lookup are not noticed until restart.
type DebugInfoCache struct {
	mu     sync.Mutex
	query  func(pkg string) bool
	loaded map[string]bool
}

func NewDebugInfoCache(query func(pkg string) bool) *DebugInfoCache {
	return &DebugInfoCache{
		query:  query,
		loaded: make(map[string]bool),
	}
}

func (c *DebugInfoCache) Loaded(pkg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found, ok := c.loaded[pkg]
	if !ok {
		found = c.query(pkg)
		c.loaded[pkg] = found
		debugf("heap: debuginfo for %s loaded=%v", pkg, found)
	}
	return found
}
