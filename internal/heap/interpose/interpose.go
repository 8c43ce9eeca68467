// Package interpose recognises malloc replacements that are linked in front
// of the C library. None of them can be analyzed yet, so their detectors
// end the chain with a wrong-version result instead of letting the glibc
// detector claim the target.
package interpose

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mabhi256/heapscope/internal/heap"
	"github.com/mabhi256/heapscope/internal/host"
)

func init() {
	heap.RegisterDetector("jemalloc", Detector("jemalloc", "libjemalloc"))
	heap.RegisterDetector("tcmalloc", Detector("tcmalloc", "libtcmalloc"))
}

var soVersion = regexp.MustCompile(`\.so\.(\d+(?:\.\d+)*)$`)

// Detector returns a detector for an allocator shipped as a library whose
// file name starts with libPrefix
func Detector(allocator, libPrefix string) heap.Detector {
	return func(target host.Target) (heap.Analyzer, error) {
		objfiles, err := target.Objfiles()
		if err != nil {
			return nil, fmt.Errorf("listing object files of %s: %w", target.Name(), err)
		}

		for _, path := range objfiles {
			base := filepath.Base(path)
			if !strings.HasPrefix(base, libPrefix) {
				continue
			}

			version := ""
			if m := soVersion.FindStringSubmatch(base); m != nil {
				version = m[1]
			}
			return nil, &heap.WrongVersionError{Allocator: allocator, Version: version}
		}
		return nil, heap.ErrNotPresent
	}
}
