package session

import (
	"fmt"

	sigar "github.com/cloudfoundry/gosigar"

	"github.com/mabhi256/heapscope/internal/host"
)

// ProcessTarget is a live process on this machine
type ProcessTarget struct {
	id   int
	pid  int
	comm string
	exe  string
}

func NewProcessTarget(id, pid int) (*ProcessTarget, error) {
	state := sigar.ProcState{}
	if err := state.Get(pid); err != nil {
		return nil, fmt.Errorf("no process %d: %w", pid, err)
	}

	t := &ProcessTarget{id: id, pid: pid, comm: state.Name}

	exe := sigar.ProcExe{}
	if err := exe.Get(pid); err == nil {
		t.exe = exe.Name
	}
	return t, nil
}

func (t *ProcessTarget) ID() int {
	return t.id
}

func (t *ProcessTarget) PID() int {
	return t.pid
}

func (t *ProcessTarget) Name() string {
	return fmt.Sprintf("process %d (%s)", t.pid, t.comm)
}

func (t *ProcessTarget) Executable() string {
	return t.exe
}

func (t *ProcessTarget) IsValid() bool {
	state := sigar.ProcState{}
	if err := state.Get(t.pid); err != nil {
		return false
	}
	return state.State != sigar.RunStateZombie
}

func (t *ProcessTarget) IsRunning() bool {
	return t.IsValid()
}

func (t *ProcessTarget) IsCoreDump() bool {
	return false
}

func (t *ProcessTarget) Mappings() ([]host.Mapping, error) {
	mappings, err := readProcMaps(t.pid)
	if err != nil {
		return nil, fmt.Errorf("reading memory map of pid %d: %w", t.pid, err)
	}
	return mappings, nil
}

func (t *ProcessTarget) Objfiles() ([]string, error) {
	mappings, err := t.Mappings()
	if err != nil {
		return nil, err
	}
	return objfilesOf(mappings), nil
}

// Processes lists the live processes on this machine
func Processes() ([]ProcessInfo, error) {
	pids := sigar.ProcList{}
	if err := pids.Get(); err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	var procs []ProcessInfo
	for _, pid := range pids.List {
		state := sigar.ProcState{}
		if err := state.Get(pid); err != nil {
			continue // exited while listing
		}
		procs = append(procs, ProcessInfo{PID: pid, Name: state.Name, State: fmt.Sprintf("%c", state.State)})
	}
	return procs, nil
}

type ProcessInfo struct {
	PID   int
	Name  string
	State string
}
