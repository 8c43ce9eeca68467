package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var coreName = regexp.MustCompile(`^(core(\.\d+)?|.+\.core)$`)

// IsCoreFileName matches the names the kernel and systemd-coredump
// commonly give core dumps: core, core.1234 and app.core
func IsCoreFileName(name string) bool {
	return coreName.MatchString(name)
}

// CompleteFiles suggests directories and the files under toComplete for
// which match returns true
func CompleteFiles(toComplete string, match func(name string) bool) []string {
	dir := filepath.Dir(toComplete)
	prefix := filepath.Base(toComplete)

	// No separator means the current directory
	if !strings.Contains(toComplete, "/") {
		dir = "."
		prefix = toComplete
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var suggestions []string
	for _, file := range files {
		name := file.Name()
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}

		suggestion := name
		if dir != "." {
			suggestion = filepath.Join(dir, name)
		}

		if file.IsDir() {
			suggestions = append(suggestions, suggestion+"/")
		} else if match(name) {
			suggestions = append(suggestions, suggestion)
		}
	}

	slices.Sort(suggestions)
	return suggestions
}
