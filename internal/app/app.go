// Package app wires the session host, the heap state, the privileged loop
// and the target watcher together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/heapscope/internal/config"
	"github.com/mabhi256/heapscope/internal/events"
	"github.com/mabhi256/heapscope/internal/heap"
	"github.com/mabhi256/heapscope/internal/host"
	"github.com/mabhi256/heapscope/internal/loop"
	"github.com/mabhi256/heapscope/internal/session"
	"github.com/mabhi256/heapscope/internal/watch"

	// Heap detectors register themselves
	_ "github.com/mabhi256/heapscope/internal/heap/glibc"
	_ "github.com/mabhi256/heapscope/internal/heap/interpose"
)

type App struct {
	Config  *config.Config
	Session *session.Session
	State   *heap.State
	Loop    *loop.Loop
	Watcher *watch.Watcher
	Events  events.ContinueSource

	out io.Writer
}

func New(cfg *config.Config, out io.Writer) (*App, error) {
	sess := session.New(out)

	var eventHost any = sess
	if cfg.NativeEvents {
		eventHost = sess.Native()
	}
	src, err := events.NewContinueSource(eventHost)
	if err != nil {
		return nil, err
	}

	chain, err := heap.Chain(cfg.Detectors)
	if err != nil {
		return nil, err
	}

	state := heap.NewState(sess, chain, src, heap.WithOutput(out))
	sess.OnTargetRemoved(state.Forget)
	state.ActivateBaseVerbs()

	a := &App{
		Config:  cfg,
		Session: sess,
		State:   state,
		Loop:    loop.New(),
		Events:  src,
		out:     out,
	}
	a.Watcher = watch.New(sess, a.Loop, cfg.GetInterval(), a.targetChanged)
	sess.OnSelectionChanged(func(t host.Target) { a.Watcher.Sync(t) })
	return a, nil
}

func (a *App) targetChanged(t host.Target) {
	if err := a.State.OnTargetChange(t); err != nil {
		fmt.Fprintf(a.out, "activating heap commands: %v\n", err)
	}
}

// AddTarget attaches to a PID or loads a core file
func (a *App) AddTarget(arg string) (host.Target, error) {
	if pid, err := strconv.Atoi(arg); err == nil && pid > 0 {
		return a.Session.Attach(pid)
	}
	return a.Session.LoadCore(arg)
}

// Run drives an interactive session until the input ends or the operator
// quits
func (a *App) Run(ctx context.Context, in io.Reader, tty bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.closeEvents()

	// Nothing else runs yet, so this goroutine may act as the privileged
	// thread for the initial command surface
	selected, _ := a.Session.SelectedTarget()
	a.Watcher.Seed(selected)
	a.targetChanged(selected)

	console := session.NewConsole(a.Session, a.Loop, in, a.out, tty)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Loop.Run(ctx)
	})
	g.Go(func() error {
		return a.Watcher.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return console.Run(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) closeEvents() {
	if c, ok := a.Events.(io.Closer); ok {
		if err := c.Close(); err != nil {
			fmt.Fprintf(a.out, "closing continue events: %v\n", err)
		}
	}
}

// DetectOnce analyzes the heap of the selected target and describes it,
// without starting the loop or the console
func (a *App) DetectOnce() {
	a.Session.Execute(heap.AnalyzeVerb)
	a.Session.Execute(heap.InfoVerb)
}
