// Package watch notices when the operator selects a different target.
package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mabhi256/heapscope/internal/host"
)

const DefaultInterval = 100 * time.Millisecond

// Selector reads which target is selected. It is called from the watcher
// goroutine and must be safe for that.
type Selector interface {
	SelectedTarget() (host.Target, error)
}

// Watcher polls the selected target off the privileged thread and, when it
// changes, runs the change handler on the privileged thread
type Watcher struct {
	selector Selector
	poster   host.Poster
	interval time.Duration
	onChange func(host.Target)

	// seen belongs to the watcher goroutine, last to the privileged thread
	seen host.Target
	last host.Target

	mu      sync.Mutex
	checks  int
	changes int
}

func New(selector Selector, poster host.Poster, interval time.Duration, onChange func(host.Target)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		selector: selector,
		poster:   poster,
		interval: interval,
		onChange: onChange,
	}
}

// Seed sets the target the watcher considers already handled. Call it
// before Run, on the privileged thread.
func (w *Watcher) Seed(t host.Target) {
	w.seen = t
	w.last = t
}

// Run polls until ctx is done. Host errors never stop it.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				debugf("watch: %v", err)
			}
		}
	}
}

// poll reads the selection in the background and only bothers the
// privileged thread when it looks different
func (w *Watcher) poll(ctx context.Context) error {
	current, err := w.selector.SelectedTarget()
	if err != nil {
		verbosef("watch: reading selected target: %v", err)
		return nil
	}
	if current == w.seen {
		return nil
	}

	changed := false
	err = w.poster.Do(ctx, func() {
		changed = w.check(current)
	})
	if err != nil {
		return err
	}
	w.seen = current

	w.mu.Lock()
	w.checks++
	if changed {
		w.changes++
	}
	w.mu.Unlock()
	return nil
}

// check runs on the privileged thread. It reads the selection again since
// it may have moved while the check was queued.
func (w *Watcher) check(seen host.Target) bool {
	current, err := w.selector.SelectedTarget()
	if err != nil {
		current = seen
	}
	return w.Sync(current)
}

// Sync runs the change handler for t unless it was the last target
// handled. It must run on the privileged thread. Hosts call it when their
// own commands move the selection, so the watcher only has to catch
// switches made behind their back.
func (w *Watcher) Sync(t host.Target) bool {
	if t == w.last {
		return false
	}

	debugf("watch: selected target changed")
	w.last = t
	w.onChange(t)
	return true
}

// Stats returns how many checks reached the privileged thread and how many
// of them found a new target
func (w *Watcher) Stats() (checks, changes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checks, w.changes
}
