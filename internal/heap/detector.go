package heap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mabhi256/heapscope/internal/host"
)

// Detector decides whether its allocator is in use by target. It returns
// an analyzer on success, ErrNotPresent when the allocator is absent, or a
// *WrongVersionError when the allocator is present in a version it cannot
// analyze. Detectors must not change the target.
type Detector func(target host.Target) (Analyzer, error)

type NamedDetector struct {
	Name   string
	Detect Detector
}

var (
	detectorsMu sync.RWMutex
	detectors   = make(map[string]Detector)
)

// RegisterDetector makes a detector available to Chain. Allocator packages
// call it from init.
func RegisterDetector(name string, d Detector) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()

	if d == nil {
		panic("heap: RegisterDetector detector is nil")
	}
	if _, dup := detectors[name]; dup {
		panic("heap: RegisterDetector called twice for detector " + name)
	}
	detectors[name] = d
}

// Detectors returns the names of all registered detectors, sorted
func Detectors() []string {
	detectorsMu.RLock()
	defer detectorsMu.RUnlock()

	names := make([]string, 0, len(detectors))
	for name := range detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain builds an ordered detector chain from registered detector names
func Chain(names []string) ([]NamedDetector, error) {
	chain := make([]NamedDetector, 0, len(names))
	for _, name := range names {
		detectorsMu.RLock()
		d, ok := detectors[name]
		detectorsMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown heap detector %q (available: %v)", name, Detectors())
		}
		chain = append(chain, NamedDetector{Name: name, Detect: d})
	}
	return chain, nil
}

// RunDetectors tries each detector in order. The first analyzer wins. A
// wrong version stops the chain and is passed to report as an
// informational message; if nothing matched the slot is Unsupported.
func RunDetectors(chain []NamedDetector, target host.Target, report func(string)) Slot {
	for _, d := range chain {
		analyzer, err := d.Detect(target)
		if err == nil {
			if analyzer == nil {
				warnf("heap: detector %s returned no analyzer and no error", d.Name)
				continue
			}
			infof("heap: detector %s matched target %d: %s", d.Name, target.ID(), analyzer.Description())
			return AnalyzerSlot(analyzer)
		}

		var wrongVersion *WrongVersionError
		switch {
		case errors.Is(err, ErrNotPresent):
			debugf("heap: detector %s declined target %d", d.Name, target.ID())
		case errors.As(err, &wrongVersion):
			if report != nil {
				report(fmt.Sprintf("INFO: Unsupported heap version detected: %v", wrongVersion))
			}
			return UnsupportedSlot()
		default:
			warnf("heap: detector %s failed on target %d: %v", d.Name, target.ID(), err)
		}
	}
	return UnsupportedSlot()
}
