package glibc

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/heapscope/internal/events"
	"github.com/mabhi256/heapscope/internal/heap"
	"github.com/mabhi256/heapscope/internal/host"
	"github.com/mabhi256/heapscope/internal/session"
)

type process struct {
	objfiles []string
	mappings []host.Mapping
}

func (p *process) ID() int { return 1 }
func (p *process) Name() string { return "process 4242" }
func (p *process) IsValid() bool { return true }
func (p *process) IsRunning() bool { return true }
func (p *process) IsCoreDump() bool { return false }
func (p *process) Objfiles() ([]string, error) { return p.objfiles, nil }
func (p *process) Mappings() ([]host.Mapping, error) { return p.mappings, nil }

// testMappings is a small process with the brk heap, one thread arena and
// one large allocation served by mmap
var testMappings = []host.Mapping{
	{Start: 0x555555554000, End: 0x555555556000, Perms: "r-xp", Path: "/usr/bin/app"},
	{Start: 0x555555559000, End: 0x55555557a000, Perms: "rw-p", Path: "[heap]"},
	{Start: 0x7ffff0000000, End: 0x7ffff0021000, Perms: "rw-p"},
	{Start: 0x7ffff0021000, End: 0x7ffff4000000, Perms: "---p"},
	{Start: 0x7ffff7dd0000, End: 0x7ffff7dd4000, Perms: "rw-p"},
	{Start: 0x7ffff7a0d000, End: 0x7ffff7bd0000, Perms: "r-xp", Path: "/lib64/libc-2.17.so"},
}

func TestVersion(t *testing.T) {
	testcases := []struct {
		objfiles []string
		version  string
	}{
		{[]string{"/usr/bin/app", "/lib64/libc-2.12.so", "/lib64/ld-2.12.so"}, "2.12"},
		{[]string{"/lib/x86_64-linux-gnu/libc-2.31.so"}, "2.31"},
		{[]string{"/lib64/libc-2.12.so", "/opt/chroot/lib64/libc-2.17.so"}, ""},
		{[]string{"/usr/bin/app", "/lib64/libm.so.6"}, ""},
		{[]string{"/nonexistent/libc.so.6"}, ""},
		{nil, ""},
	}
	for _, tc := range testcases {
		version, err := Version(&process{objfiles: tc.objfiles})
		require.NoError(t, err)
		assert.Equal(t, tc.version, version, "%v", tc.objfiles)
	}
}

func TestDetect(t *testing.T) {
	a, err := Detect(&process{objfiles: []string{"/lib64/libc-2.17.so"}})
	require.NoError(t, err)
	assert.Equal(t, "GNU libc 2.17 Heap Implementation", a.Description())
	assert.False(t, a.IsValid())

	_, err = Detect(&process{objfiles: []string{"/lib64/libc-2.5.so"}})
	var wrong *heap.WrongVersionError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, "glibc version 2.5 not supported", wrong.Error())

	_, err = Detect(&process{objfiles: []string{"/usr/bin/static"}})
	assert.ErrorIs(t, err, heap.ErrNotPresent)

	assert.Contains(t, heap.Detectors(), "glibc")
}

func TestBuildLayout(t *testing.T) {
	layout := buildLayout(testMappings, defaultHeapMax)

	assert.Equal(t, len(testMappings), layout.Mappings)
	require.Len(t, layout.Arenas, 2)

	main := layout.Arenas[0]
	assert.True(t, main.Main)
	assert.Equal(t, 0, main.Index)
	assert.Equal(t, uint64(0x21000), main.Size())
	assert.Zero(t, main.Reserved)

	arena := layout.Arenas[1]
	assert.False(t, arena.Main)
	assert.Equal(t, 1, arena.Index)
	assert.Equal(t, uint64(0x21000), arena.Size())
	assert.Equal(t, uint64(0x4000000-0x21000), arena.Reserved)

	assert.Equal(t, uint64(0x25000), layout.Anonymous)
	assert.Equal(t, uint64(0x4000), layout.Mmapped)
}

func TestArenaChart(t *testing.T) {
	layout := buildLayout(testMappings, defaultHeapMax)

	assert.Equal(t, "main", arenaLabel(layout.Arenas[0]))
	assert.Equal(t, "1", arenaLabel(layout.Arenas[1]))

	chart := arenaChart(layout.Arenas)
	assert.NotEmpty(t, strings.TrimSpace(chart))
	assert.LessOrEqual(t, lipgloss.Height(chart), chartHeight)
	assert.LessOrEqual(t, lipgloss.Width(chart), 2*(chartBarWidth+1))

	// only terminals get the chart
	assert.False(t, isTerminal(&bytes.Buffer{}))
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}

func TestBuildLayoutNoHeap(t *testing.T) {
	layout := buildLayout([]host.Mapping{
		{Start: 0x400000, End: 0x401000, Perms: "r-xp", Path: "/usr/bin/static"},
	}, defaultHeapMax)
	assert.Empty(t, layout.Arenas)
	assert.Zero(t, layout.Anonymous)
}

func TestVariants(t *testing.T) {
	for version, v := range variants {
		assert.Equal(t, version, v.Version)
		assert.Equal(t, uint64(64<<20), v.HeapMax)
	}
	assert.Zero(t, variants["2.17"].TcacheBins)
	assert.Equal(t, 64, variants["2.28"].TcacheBins)
}

func newSession(t *testing.T, p *process) (*session.Session, *bytes.Buffer) {
	out := &bytes.Buffer{}
	sess := session.New(out)
	sess.AddTarget(p)

	chain, err := heap.Chain([]string{"glibc"})
	require.NoError(t, err)
	state := heap.NewState(sess, chain, events.NewHookSource(sess, events.ContinueVerbs),
		heap.WithOutput(out),
		heap.WithDebugInfoCache(heap.NewDebugInfoCache(func(string) bool { return true })))
	state.ActivateBaseVerbs()
	return sess, out
}

func TestCommands(t *testing.T) {
	p := &process{
		objfiles: []string{"/usr/bin/app", "/lib64/libc-2.17.so"},
		mappings: testMappings,
	}
	sess, out := newSession(t, p)

	sess.Execute("heap analyze")
	assert.Equal(t, "Analyzed GNU libc 2.17 Heap Implementation\n", out.String())

	out.Reset()
	sess.Execute("heap info")
	assert.Equal(t, "GNU libc 2.17 Heap Implementation\n", out.String())

	out.Reset()
	sess.Execute("heap arenas")
	assert.Contains(t, out.String(), "Arena 0 (main arena): 1 heap(s), 132 KiB\n")
	assert.Contains(t, out.String(), "Arena 1 (arena): 1 heap(s), 132 KiB\n")
	assert.Contains(t, out.String(), "reserved\n")

	out.Reset()
	sess.Execute("heap details")
	assert.Contains(t, out.String(), "tcache bins:")
	assert.Contains(t, out.String(), "none")
	assert.Contains(t, out.String(), "16 KiB")

	out.Reset()
	sess.Execute("continue")
	assert.Contains(t, out.String(), "Continuing.")

	out.Reset()
	sess.Execute("heap arenas")
	assert.Contains(t, out.String(), `Heap information is out of date, re-run "heap analyze"`)
}

func TestCommandsNeedDebugInfo(t *testing.T) {
	p := &process{
		objfiles: []string{"/lib64/libc-2.28.so"},
		mappings: testMappings,
	}
	out := &bytes.Buffer{}
	sess := session.New(out)
	sess.AddTarget(p)

	chain, err := heap.Chain([]string{"glibc"})
	require.NoError(t, err)
	state := heap.NewState(sess, chain, events.NewHookSource(sess, events.ContinueVerbs), heap.WithOutput(out))
	state.ActivateBaseVerbs()

	sess.Execute("heap analyze")
	out.Reset()
	sess.Execute("heap details")
	assert.Contains(t, out.String(), "debuginfo-install libc")
}
