package glibc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mabhi256/heapscope/internal/heap"
	"github.com/mabhi256/heapscope/internal/host"
)

// Arena is one malloc arena located from the target's memory map
type Arena struct {
	Index int
	Main  bool

	// Heaps are the writable regions backing the arena. The main arena
	// has the single brk heap, other arenas one mapping per heap.
	Heaps []host.Mapping

	// Reserved is address space mapped PROT_NONE behind the heaps
	Reserved uint64
}

func (a Arena) Size() uint64 {
	var size uint64
	for _, h := range a.Heaps {
		size += h.Size()
	}
	return size
}

// Layout is the derived heap data of one analysis
type Layout struct {
	Arenas    []Arena
	Mappings  int
	Anonymous uint64 // bytes in anonymous writable mappings
	Mmapped   uint64 // anonymous writable bytes outside any arena
}

type Analyzer struct {
	*heap.Base
	variant variant
	layout  *Layout
}

func newAnalyzer(target host.Target, v variant) *Analyzer {
	return &Analyzer{
		Base:    heap.NewBase(target),
		variant: v,
	}
}

func (a *Analyzer) Description() string {
	return a.variant.Description()
}

func (a *Analyzer) Version() string {
	return a.variant.Version
}

// Layout returns the result of the last analysis, nil before the first one
func (a *Analyzer) Layout() *Layout {
	return a.layout
}

func (a *Analyzer) Analyze() error {
	mappings, err := a.Target().Mappings()
	if err != nil {
		return fmt.Errorf("reading memory map: %w", err)
	}

	a.layout = buildLayout(mappings, a.variant.HeapMax)
	a.MarkValid()
	return nil
}

// buildLayout finds the arenas from address space alone: the main arena
// lives in [heap], every other arena heap starts on a HeapMax boundary
// and is followed by its PROT_NONE reservation.
func buildLayout(mappings []host.Mapping, heapMax uint64) *Layout {
	sorted := make([]host.Mapping, len(mappings))
	copy(sorted, mappings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	layout := &Layout{Mappings: len(sorted)}

	for _, m := range sorted {
		if m.Path == "[heap]" {
			layout.Arenas = append(layout.Arenas, Arena{Main: true, Heaps: []host.Mapping{m}})
		}
	}

	for i, m := range sorted {
		if !m.Anonymous() || !m.Writable() {
			continue
		}
		layout.Anonymous += m.Size()

		if heapMax == 0 || m.Start%heapMax != 0 || m.Size() > heapMax {
			continue
		}

		arena := Arena{Heaps: []host.Mapping{m}}
		if i+1 < len(sorted) {
			next := sorted[i+1]
			if next.Anonymous() && next.Start == m.End && strings.HasPrefix(next.Perms, "---") {
				arena.Reserved = next.Size()
			}
		}
		layout.Arenas = append(layout.Arenas, arena)
	}

	for i := range layout.Arenas {
		layout.Arenas[i].Index = i
	}

	// [heap] is not anonymous, so only count non-main arenas against it
	layout.Mmapped = layout.Anonymous
	for _, arena := range layout.Arenas {
		if !arena.Main {
			layout.Mmapped -= arena.Size()
		}
	}
	return layout
}

var _ heap.Analyzer = (*Analyzer)(nil)
