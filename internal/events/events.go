// Package events delivers "execution resumed" notifications to the heap
// analyzers. Hosts with a native resume event are subscribed to directly,
// others get one hook per resume-like command.
package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mabhi256/heapscope/internal/host"
)

// ErrNotSubscribed is returned when unsubscribing a listener that was never
// subscribed
var ErrNotSubscribed = errors.New("listener is not subscribed")

// ContinueVerbs are the commands that resume a target
var ContinueVerbs = []string{
	"continue", "c",
	"next", "n",
	"step", "s",
	"stepi", "si",
	"nexti", "ni",
	"finish",
	"until",
	"advance",
	"jump",
	"signal",
	"run",
	"start",
}

// ContinueEvent tells a listener that a target resumed. Hooked hosts give no
// detail about which target or why.
type ContinueEvent struct{}

type Listener interface {
	OnContinue(ev ContinueEvent)
}

// ContinueSource hides whether events come from the host or from hooks
type ContinueSource interface {
	Subscribe(l Listener)
	Unsubscribe(l Listener) error
}

// NewContinueSource picks the best strategy the host supports
func NewContinueSource(h any) (ContinueSource, error) {
	if native, ok := h.(host.NativeEvents); ok {
		infof("events: using native continue events")
		return newNativeSource(native), nil
	}
	if hooks, ok := h.(host.HookInstaller); ok {
		infof("events: emulating continue events with %d command hooks", len(ContinueVerbs))
		return NewHookSource(hooks, ContinueVerbs), nil
	}
	return nil, fmt.Errorf("host %T supports neither continue events nor command hooks", h)
}

// listeners is an ordered set of subscribers
type listeners struct {
	mu   sync.Mutex
	list []Listener
}

func (ls *listeners) add(l Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.list = append(ls.list, l)
}

func (ls *listeners) remove(l Listener) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i, x := range ls.list {
		if x == l {
			ls.list = append(ls.list[:i], ls.list[i+1:]...)
			return true
		}
	}
	return false
}

func (ls *listeners) len() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.list)
}

// fire calls every listener with no lock held, so a listener may
// unsubscribe itself
func (ls *listeners) fire() {
	ls.mu.Lock()
	snapshot := make([]Listener, len(ls.list))
	copy(snapshot, ls.list)
	ls.mu.Unlock()

	for _, l := range snapshot {
		l.OnContinue(ContinueEvent{})
	}
}

type nativeSource struct {
	ls     listeners
	cancel func()
	once   sync.Once
}

func newNativeSource(native host.NativeEvents) *nativeSource {
	src := &nativeSource{}
	src.cancel = native.OnContinue(src.ls.fire)
	return src
}

// Close stops listening to the host. Subscribers hear nothing after it.
func (src *nativeSource) Close() error {
	src.once.Do(func() {
		if src.cancel != nil {
			src.cancel()
		}
	})
	return nil
}

func (src *nativeSource) Subscribe(l Listener) {
	src.ls.add(l)
}

func (src *nativeSource) Unsubscribe(l Listener) error {
	if !src.ls.remove(l) {
		return ErrNotSubscribed
	}
	return nil
}
