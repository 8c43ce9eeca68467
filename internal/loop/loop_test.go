package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T) (*Loop, context.CancelFunc, chan error) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- l.Run(ctx)
	}()
	return l, cancel, errc
}

func TestDoWaits(t *testing.T) {
	l, cancel, errc := start(t)

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)

	cancel()
	assert.Equal(t, context.Canceled, <-errc)
	<-l.Stopped()
}

func TestConcurrentDo(t *testing.T) {
	l, cancel, _ := start(t)
	defer cancel()

	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// order is only touched on the loop, no lock needed
			assert.NoError(t, l.Do(context.Background(), func() { order = append(order, i) }))
		}()
	}
	wg.Wait()
	assert.Len(t, order, 50)
}

func TestPost(t *testing.T) {
	l, cancel, _ := start(t)
	defer cancel()

	done := make(chan struct{})
	l.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("posted work never ran")
	}
}

func TestDoAfterStop(t *testing.T) {
	l, cancel, errc := start(t)
	cancel()
	<-errc

	err := l.Do(context.Background(), func() { t.Error("ran on a stopped loop") })
	assert.Equal(t, ErrStopped, err)

	// posting to a stopped loop is dropped
	l.Post(func() { t.Error("ran on a stopped loop") })
}

func TestDoCancelled(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Do(ctx, func() { t.Error("ran without a loop") })
	assert.Equal(t, context.Canceled, err)
}

func TestRunOnce(t *testing.T) {
	l, cancel, _ := start(t)
	defer cancel()

	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Error(t, l.Run(context.Background()))
}
