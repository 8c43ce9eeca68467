package glibc

import (
	"io"
	"os"
	"strconv"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/mabhi256/heapscope/internal/heap"
	"github.com/mabhi256/heapscope/internal/host"
	"github.com/mabhi256/heapscope/utils"
)

const (
	chartHeight   = 12
	chartBarWidth = 6
	chartMaxWidth = 80
)

// ActivateVerbs registers the glibc commands for a
func (a *Analyzer) ActivateVerbs(h host.Host, s *heap.State) error {
	commands := []*host.Command{
		heap.AnalyzerCommand(s, a, "heap arenas", "Show information about the arenas", "libc", a.showArenas),
		heap.AnalyzerCommand(s, a, "heap details", "Show detailed information about the heap", "libc", a.showDetails),
	}
	for _, cmd := range commands {
		if err := h.RegisterCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) showArenas(inv *host.Invocation) error {
	layout := a.Layout()
	if len(layout.Arenas) == 0 {
		inv.Println("No arenas found")
		return nil
	}

	for _, arena := range layout.Arenas {
		name := "arena"
		if arena.Main {
			name = "main arena"
		}
		inv.Printf("Arena %d (%s): %d heap(s), %s\n",
			arena.Index, name, len(arena.Heaps), humanize.IBytes(arena.Size()))

		for _, h := range arena.Heaps {
			inv.Printf("    %#x-%#x %s %s\n", h.Start, h.End, h.Perms, humanize.IBytes(h.Size()))
		}
		if arena.Reserved > 0 {
			inv.Printf("    %s reserved\n", humanize.IBytes(arena.Reserved))
		}
	}

	if len(layout.Arenas) > 1 && isTerminal(inv.Out) {
		inv.Println()
		inv.Println("Arena sizes (KiB):")
		inv.Println(arenaChart(layout.Arenas))
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func arenaLabel(arena Arena) string {
	if arena.Main {
		return "main"
	}
	return strconv.Itoa(arena.Index)
}

// arenaChart draws one bar per arena, the main arena first
func arenaChart(arenas []Arena) string {
	data := make([]barchart.BarData, 0, len(arenas))
	for _, arena := range arenas {
		style := utils.InfoStyle
		if arena.Main {
			style = utils.GoodStyle
		}
		label := arenaLabel(arena)
		data = append(data, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{
				{Name: label, Value: float64(arena.Size()) / 1024, Style: style},
			},
		})
	}

	width := min(len(arenas)*(chartBarWidth+1), chartMaxWidth)
	chart := barchart.New(width, chartHeight)
	chart.PushAll(data)
	chart.Draw()
	return chart.View()
}

func (a *Analyzer) showDetails(inv *host.Invocation) error {
	layout := a.Layout()

	var arenaBytes uint64
	for _, arena := range layout.Arenas {
		arenaBytes += arena.Size()
	}

	inv.Println(a.Description())
	inv.Printf("  %-24s %s\n", "heap max size:", humanize.IBytes(a.variant.HeapMax))
	if a.variant.TcacheBins > 0 {
		inv.Printf("  %-24s %d\n", "tcache bins:", a.variant.TcacheBins)
	} else {
		inv.Printf("  %-24s %s\n", "tcache bins:", "none")
	}
	inv.Printf("  %-24s %d\n", "mappings:", layout.Mappings)
	inv.Printf("  %-24s %d\n", "arenas:", len(layout.Arenas))
	inv.Printf("  %-24s %s\n", "arena heaps:", humanize.IBytes(arenaBytes))
	inv.Printf("  %-24s %s\n", "anonymous writable:", humanize.IBytes(layout.Anonymous))
	inv.Printf("  %-24s %s\n", "other mmapped:", humanize.IBytes(layout.Mmapped))
	return nil
}
