package config

import (
	"testing"
	"time"

	s "github.com/bnclabs/gosettings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, int64(100), c.Interval)
	assert.Equal(t, 100*time.Millisecond, c.GetInterval())
	assert.Equal(t, []string{"jemalloc", "tcmalloc", "glibc"}, c.Detectors)
	assert.False(t, c.NativeEvents)
	assert.Equal(t, "warn", c.LogLevel)

	setts := c.LogSettings()
	assert.Equal(t, "warn", setts["log.level"])
	assert.NotContains(t, setts, "log.file")
}

func TestOverrides(t *testing.T) {
	c, err := New(s.Settings{
		"watch.interval": int64(250),
		"detectors":      " glibc , ,jemalloc",
		"events.native":  true,
		"log.level":      "debug",
		"log.file":       "/tmp/heapscope.log",
	})
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, c.GetInterval())
	assert.Equal(t, []string{"glibc", "jemalloc"}, c.Detectors)
	assert.True(t, c.NativeEvents)
	assert.Equal(t, "/tmp/heapscope.log", c.LogSettings()["log.file"])
}

func TestValidate(t *testing.T) {
	_, err := New(s.Settings{"watch.interval": int64(0)})
	assert.Error(t, err)

	_, err = New(s.Settings{"detectors": " , "})
	assert.Error(t, err)

	_, err = New(s.Settings{"log.level": "loud"})
	assert.Error(t, err)
}
