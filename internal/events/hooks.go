package events

import (
	"sync"

	"github.com/mabhi256/heapscope/internal/host"
)

// commandHook is the single host hook installed for one verb. It fans out
// to every subscriber.
type commandHook struct {
	verb string
	ls   listeners
}

// HookSource emulates continue events by hooking resume-like commands
type HookSource struct {
	installer host.HookInstaller
	verbs     []string

	mu    sync.Mutex
	hooks map[string]*commandHook
}

func NewHookSource(installer host.HookInstaller, verbs []string) *HookSource {
	return &HookSource{
		installer: installer,
		verbs:     verbs,
		hooks:     make(map[string]*commandHook),
	}
}

// hook returns the hook for verb, installing it with the host on first use
func (src *HookSource) hook(verb string) *commandHook {
	src.mu.Lock()
	defer src.mu.Unlock()

	if h, ok := src.hooks[verb]; ok {
		return h
	}

	h := &commandHook{verb: verb}
	src.installer.InstallHook(verb, func() {
		debugf("events: %q fired for %d listeners", verb, h.ls.len())
		h.ls.fire()
	})
	src.hooks[verb] = h
	return h
}

// Subscribe registers l with the hook of every resume verb
func (src *HookSource) Subscribe(l Listener) {
	for _, verb := range src.verbs {
		src.hook(verb).ls.add(l)
	}
}

// Unsubscribe removes l from every hook. It fails if l was not subscribed.
func (src *HookSource) Unsubscribe(l Listener) error {
	removed := false
	for _, verb := range src.verbs {
		if src.hook(verb).ls.remove(l) {
			removed = true
		}
	}
	if !removed {
		return ErrNotSubscribed
	}
	return nil
}

// Installed reports the verbs a host hook has been installed for
func (src *HookSource) Installed() []string {
	src.mu.Lock()
	defer src.mu.Unlock()

	verbs := make([]string, 0, len(src.hooks))
	for _, verb := range src.verbs {
		if _, ok := src.hooks[verb]; ok {
			verbs = append(verbs, verb)
		}
	}
	return verbs
}
