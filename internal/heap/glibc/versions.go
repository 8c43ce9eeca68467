package glibc

import "github.com/dustin/go-humanize"

// variant holds what differs between the glibc releases we understand
type variant struct {
	Version string

	// HeapMax is HEAP_MAX_SIZE: every non-main arena heap is mapped at an
	// address aligned to it and never grows past it
	HeapMax uint64

	// TcacheBins is zero before the per-thread cache appeared in 2.26
	TcacheBins int
}

func (v variant) Description() string {
	return "GNU libc " + v.Version + " Heap Implementation"
}

const defaultHeapMax = 64 * humanize.MiByte

var variants = map[string]variant{
	"2.12": {Version: "2.12", HeapMax: defaultHeapMax},
	"2.17": {Version: "2.17", HeapMax: defaultHeapMax},
	"2.28": {Version: "2.28", HeapMax: defaultHeapMax, TcacheBins: 64},
	"2.31": {Version: "2.31", HeapMax: defaultHeapMax, TcacheBins: 64},
	"2.35": {Version: "2.35", HeapMax: defaultHeapMax, TcacheBins: 64},
}
