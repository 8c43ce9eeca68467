package heap

import (
	"errors"
	"fmt"
)

// ErrNotPresent is returned by a detector that found no trace of its
// allocator in the target. The detector chain moves on to the next entry.
var ErrNotPresent = errors.New("heap implementation not present")

// ErrInvalidAnalyzer is returned when a command needs heap information
// that went stale because the target resumed execution.
var ErrInvalidAnalyzer = errors.New(`Heap information is out of date, re-run "heap analyze"`)

// ErrTakesNoArguments is returned by commands invoked with arguments they
// don't accept.
var ErrTakesNoArguments = errors.New("Command takes no arguments")

// WrongVersionError reports an allocator that was recognised but has no
// analyzer for its version. It ends detection for the target.
type WrongVersionError struct {
	Allocator string
	Version   string
}

func (e *WrongVersionError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("%s not supported", e.Allocator)
	}
	return fmt.Sprintf("%s version %s not supported", e.Allocator, e.Version)
}

// MissingDebugInfoError is returned by commands that need debug symbols for
// a library which aren't loaded.
type MissingDebugInfoError struct {
	Package string
}

func (e *MissingDebugInfoError) Error() string {
	return fmt.Sprintf("Missing debuginfo for %s\nSuggested fix:\n    debuginfo-install %s",
		e.Package, e.Package)
}

// ProgrammingError is the panic value used when the state manager's own
// preconditions are violated.
type ProgrammingError struct {
	Msg string
}

func (e *ProgrammingError) Error() string {
	return "programming error: " + e.Msg
}

func programmingError(format string, args ...any) {
	err := &ProgrammingError{Msg: fmt.Sprintf(format, args...)}
	errorf("%v", err)
	panic(err)
}
