package session

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/mabhi256/heapscope/internal/host"
)

// ntFile is the note type listing the files mapped into a dumped process
const ntFile = 0x46494c45 // "FILE"

// brkWindow bounds how far past the executable the kernel may place the
// start of the brk heap
const brkWindow = 32 * humanize.MiByte

type fileMapping struct {
	start, end, offset uint64
	path               string
}

// CoreTarget is a post-mortem process image
type CoreTarget struct {
	id       int
	path     string
	files    []fileMapping
	mappings []host.Mapping
}

// OpenCore reads the segments and file notes of an ELF core dump
func OpenCore(id int, path string) (*CoreTarget, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening core %s: %w", path, err)
	}
	defer f.Close()

	if f.Type != elf.ET_CORE {
		return nil, fmt.Errorf("%s is not a core dump (ELF type %s)", path, f.Type)
	}

	t := &CoreTarget{id: id, path: path}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_NOTE {
			continue
		}
		data, err := io.ReadAll(prog.Open())
		if err != nil {
			return nil, fmt.Errorf("reading notes of %s: %w", path, err)
		}
		files, err := parseFileNote(data, f.ByteOrder, f.Class)
		if err != nil {
			return nil, fmt.Errorf("parsing notes of %s: %w", path, err)
		}
		t.files = append(t.files, files...)
	}

	var loads []*elf.Prog
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_LOAD {
			loads = append(loads, prog)
		}
	}
	t.mappings = coreMappings(loads, t.files)
	return t, nil
}

// parseFileNote walks a PT_NOTE segment and decodes its NT_FILE entry:
// a count, the page size, count (start, end, page offset) triples and
// then count NUL terminated file names
func parseFileNote(data []byte, order binary.ByteOrder, class elf.Class) ([]fileMapping, error) {
	word := 8
	if class == elf.ELFCLASS32 {
		word = 4
	}
	readWord := func(b []byte) uint64 {
		if word == 4 {
			return uint64(order.Uint32(b))
		}
		return order.Uint64(b)
	}
	align4 := func(n uint32) int {
		return int((n + 3) &^ 3)
	}

	for len(data) >= 12 {
		namesz := order.Uint32(data[0:4])
		descsz := order.Uint32(data[4:8])
		ntype := order.Uint32(data[8:12])
		data = data[12:]

		if len(data) < align4(namesz) {
			return nil, fmt.Errorf("truncated note name")
		}
		data = data[align4(namesz):]
		if len(data) < int(descsz) {
			return nil, fmt.Errorf("truncated note of type %#x", ntype)
		}
		desc := data[:descsz]
		data = data[min(align4(descsz), len(data)):]

		if ntype != ntFile {
			continue
		}
		if len(desc) < 2*word {
			return nil, fmt.Errorf("truncated NT_FILE header")
		}

		n := readWord(desc)
		pageSize := readWord(desc[word:])
		desc = desc[2*word:]
		if n > uint64(len(desc)/(3*word)) {
			return nil, fmt.Errorf("NT_FILE lists %d files but is only %d bytes", n, len(desc))
		}
		count := int(n)

		files := make([]fileMapping, count)
		for i := range files {
			entry := desc[i*3*word:]
			files[i] = fileMapping{
				start:  readWord(entry),
				end:    readWord(entry[word:]),
				offset: readWord(entry[2*word:]) * pageSize,
			}
		}

		names := desc[count*3*word:]
		for i := range files {
			name, rest, found := bytes.Cut(names, []byte{0})
			if !found && i < count-1 {
				return nil, fmt.Errorf("NT_FILE has %d names for %d files", i+1, count)
			}
			files[i].path = string(name)
			names = rest
		}
		return files, nil
	}
	return nil, nil
}

func permsOf(flags elf.ProgFlag) string {
	perms := []byte("---p")
	if flags&elf.PF_R != 0 {
		perms[0] = 'r'
	}
	if flags&elf.PF_W != 0 {
		perms[1] = 'w'
	}
	if flags&elf.PF_X != 0 {
		perms[2] = 'x'
	}
	return string(perms)
}

// coreMappings rebuilds a maps-like view from PT_LOAD segments. Cores
// don't name the brk heap, so the first anonymous writable segment close
// behind the executable is labelled [heap].
func coreMappings(loads []*elf.Prog, files []fileMapping) []host.Mapping {
	mappings := make([]host.Mapping, 0, len(loads))
	for _, prog := range loads {
		m := host.Mapping{
			Start: prog.Vaddr,
			End:   prog.Vaddr + prog.Memsz,
			Perms: permsOf(prog.Flags),
		}
		for _, fm := range files {
			if m.Start >= fm.start && m.Start < fm.end {
				m.Path = fm.path
				m.Offset = fm.offset + (m.Start - fm.start)
				break
			}
		}
		mappings = append(mappings, m)
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].Start < mappings[j].Start
	})

	if len(files) == 0 {
		return mappings
	}

	// The executable is the first file the kernel lists
	exe := files[0].path
	var exeEnd uint64
	for _, fm := range files {
		if fm.path == exe && fm.end > exeEnd {
			exeEnd = fm.end
		}
	}
	for i, m := range mappings {
		if m.Anonymous() && m.Writable() && m.Start >= exeEnd && m.Start-exeEnd <= brkWindow {
			mappings[i].Path = "[heap]"
			break
		}
	}
	return mappings
}

func (t *CoreTarget) ID() int {
	return t.id
}

func (t *CoreTarget) Name() string {
	return "core " + filepath.Base(t.path)
}

func (t *CoreTarget) Path() string {
	return t.path
}

func (t *CoreTarget) IsValid() bool {
	_, err := os.Stat(t.path)
	return err == nil
}

func (t *CoreTarget) IsRunning() bool {
	return false
}

func (t *CoreTarget) IsCoreDump() bool {
	return true
}

func (t *CoreTarget) Mappings() ([]host.Mapping, error) {
	mappings := make([]host.Mapping, len(t.mappings))
	copy(mappings, t.mappings)
	return mappings, nil
}

func (t *CoreTarget) Objfiles() ([]string, error) {
	seen := make(map[string]bool)
	var objfiles []string
	for _, fm := range t.files {
		if seen[fm.path] {
			continue
		}
		seen[fm.path] = true
		objfiles = append(objfiles, fm.path)
	}
	return objfiles, nil
}
