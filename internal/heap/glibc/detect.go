// Package glibc supports the heap of the GNU C library's malloc.
package glibc

import (
	"bytes"
	"debug/elf"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mabhi256/heapscope/internal/heap"
	"github.com/mabhi256/heapscope/internal/host"
)

func init() {
	heap.RegisterDetector("glibc", Detect)
}

// Detect returns an analyzer for target if it uses a supported glibc
// heap. Detection only inspects object files, so it works the same for
// live processes and core dumps.
func Detect(target host.Target) (heap.Analyzer, error) {
	version, err := Version(target)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, fmt.Errorf("glibc heap not found: %w", heap.ErrNotPresent)
	}

	v, ok := variants[version]
	if !ok {
		return nil, &heap.WrongVersionError{Allocator: "glibc", Version: version}
	}
	return newAnalyzer(target, v), nil
}

var bannerVersion = regexp.MustCompile(`release version (\d+\.\d+)`)

// Version returns the glibc version mapped into target, e.g. "2.12", or ""
// when target has no single C library
func Version(target host.Target) (string, error) {
	objfiles, err := target.Objfiles()
	if err != nil {
		return "", fmt.Errorf("listing object files of %s: %w", target.Name(), err)
	}

	var versioned, unversioned []string
	for _, path := range objfiles {
		base := filepath.Base(path)
		switch {
		case strings.HasPrefix(base, "libc-") && strings.Contains(base, ".so"):
			versioned = append(versioned, base)
		case base == "libc.so.6":
			unversioned = append(unversioned, path)
		}
	}

	// Older distributions ship libc-2.12.so with the version in the name
	if len(versioned) == 1 {
		name := strings.TrimPrefix(versioned[0], "libc-")
		version, _, _ := strings.Cut(name, ".so")
		return version, nil
	}
	if len(versioned) > 1 || len(unversioned) != 1 {
		return "", nil
	}

	version, err := readBannerVersion(unversioned[0])
	if err != nil {
		// A core dump's libc may not exist on this machine
		return "", nil
	}
	return version, nil
}

// readBannerVersion finds the "release version X.Y" banner glibc keeps in
// its read-only data
func readBannerVersion(path string) (string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rodata := f.Section(".rodata")
	if rodata == nil {
		return "", fmt.Errorf("%s has no .rodata section", path)
	}
	data, err := rodata.Data()
	if err != nil {
		return "", fmt.Errorf("reading .rodata of %s: %w", path, err)
	}

	idx := bytes.Index(data, []byte("GNU C Library"))
	if idx < 0 {
		return "", fmt.Errorf("no glibc banner in %s", path)
	}
	end := min(idx+256, len(data))
	m := bannerVersion.FindSubmatch(data[idx:end])
	if m == nil {
		return "", fmt.Errorf("no version in glibc banner of %s", path)
	}
	return string(m[1]), nil
}
