package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func (c *counter) OnContinue(ContinueEvent) {
	c.n++
}

type hookHost struct {
	hooks map[string][]func()
}

func newHookHost() *hookHost {
	return &hookHost{hooks: make(map[string][]func())}
}

func (h *hookHost) InstallHook(verb string, fn func()) {
	h.hooks[verb] = append(h.hooks[verb], fn)
}

func (h *hookHost) run(verb string) {
	for _, fn := range h.hooks[verb] {
		fn()
	}
}

type nativeHost struct {
	hookHost
	fns     []func()
	cancels int
}

func (h *nativeHost) OnContinue(fn func()) func() {
	h.fns = append(h.fns, fn)
	idx := len(h.fns) - 1
	return func() {
		h.cancels++
		h.fns[idx] = nil
	}
}

func (h *nativeHost) resume() {
	for _, fn := range h.fns {
		if fn != nil {
			fn()
		}
	}
}

func TestHookSourceInstallsOncePerVerb(t *testing.T) {
	h := newHookHost()
	src := NewHookSource(h, []string{"continue", "next"})
	assert.Empty(t, src.Installed())

	a, b := &counter{}, &counter{}
	src.Subscribe(a)
	src.Subscribe(b)
	require.NoError(t, src.Unsubscribe(a))
	src.Subscribe(a)

	assert.Equal(t, []string{"continue", "next"}, src.Installed())
	assert.Len(t, h.hooks["continue"], 1)
	assert.Len(t, h.hooks["next"], 1)

	h.run("continue")
	h.run("next")
	h.run("print")
	assert.Equal(t, 2, a.n)
	assert.Equal(t, 2, b.n)
}

func TestHookSourceUnsubscribe(t *testing.T) {
	h := newHookHost()
	src := NewHookSource(h, ContinueVerbs)

	a := &counter{}
	assert.Equal(t, ErrNotSubscribed, src.Unsubscribe(a))

	src.Subscribe(a)
	require.NoError(t, src.Unsubscribe(a))
	assert.Equal(t, ErrNotSubscribed, src.Unsubscribe(a))

	// hooks stay installed and are silent
	h.run("continue")
	assert.Zero(t, a.n)
	assert.Len(t, h.hooks["continue"], 1)
}

type selfRemover struct {
	src ContinueSource
	n   int
}

func (r *selfRemover) OnContinue(ContinueEvent) {
	r.n++
	r.src.Unsubscribe(r)
}

func TestListenerMayUnsubscribeItself(t *testing.T) {
	h := newHookHost()
	src := NewHookSource(h, []string{"step"})
	r := &selfRemover{src: src}
	other := &counter{}
	src.Subscribe(r)
	src.Subscribe(other)

	h.run("step")
	h.run("step")
	assert.Equal(t, 1, r.n)
	assert.Equal(t, 2, other.n)
}

func TestNewContinueSourcePrefersNative(t *testing.T) {
	h := &nativeHost{hookHost: *newHookHost()}
	src, err := NewContinueSource(h)
	require.NoError(t, err)
	assert.IsType(t, &nativeSource{}, src)

	a := &counter{}
	src.Subscribe(a)
	h.resume()
	assert.Equal(t, 1, a.n)
	assert.Empty(t, h.hooks)

	require.NoError(t, src.Unsubscribe(a))
	h.resume()
	assert.Equal(t, 1, a.n)
	assert.Equal(t, ErrNotSubscribed, src.Unsubscribe(a))
}

func TestNativeSourceClose(t *testing.T) {
	h := &nativeHost{hookHost: *newHookHost()}
	src := newNativeSource(h)

	a := &counter{}
	src.Subscribe(a)
	h.resume()
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	h.resume()

	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, h.cancels)
}

func TestNewContinueSourceFallsBackToHooks(t *testing.T) {
	h := newHookHost()
	src, err := NewContinueSource(h)
	require.NoError(t, err)
	assert.IsType(t, &HookSource{}, src)

	a := &counter{}
	src.Subscribe(a)
	for _, verb := range ContinueVerbs {
		h.run(verb)
	}
	assert.Equal(t, len(ContinueVerbs), a.n)
}

func TestNewContinueSourceUnsupportedHost(t *testing.T) {
	_, err := NewContinueSource(struct{}{})
	assert.Error(t, err)
}
