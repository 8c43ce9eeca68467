package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mabhi256/heapscope/internal/host"
)

// readProcMaps reads the memory map of a live process
func readProcMaps(pid int) ([]host.Mapping, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseProcMaps(f)
}

// parseProcMaps parses lines of the form
//
//	7f3c1c000000-7f3c1c021000 rw-p 00000000 00:00 0                      [heap]
func parseProcMaps(r io.Reader) ([]host.Mapping, error) {
	var mappings []host.Mapping
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, fmt.Errorf("malformed maps line %q", line)
		}

		startStr, endStr, found := strings.Cut(fields[0], "-")
		if !found {
			return nil, fmt.Errorf("malformed address range %q", fields[0])
		}
		start, err := strconv.ParseUint(startStr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad start address %q: %w", startStr, err)
		}
		end, err := strconv.ParseUint(endStr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad end address %q: %w", endStr, err)
		}
		offset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad offset %q: %w", fields[2], err)
		}

		m := host.Mapping{
			Start:  start,
			End:    end,
			Perms:  fields[1],
			Offset: offset,
		}
		if len(fields) > 5 {
			m.Path = strings.Join(fields[5:], " ")
		}
		mappings = append(mappings, m)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}

// objfilesOf returns the distinct files backing mappings, in address order
func objfilesOf(mappings []host.Mapping) []string {
	seen := make(map[string]bool)
	var files []string
	for _, m := range mappings {
		if !strings.HasPrefix(m.Path, "/") || seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		files = append(files, m.Path)
	}
	return files
}
