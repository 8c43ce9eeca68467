package heap

import (
	"fmt"

	"github.com/mabhi256/heapscope/internal/host"
)

const (
	PrefixVerb  = "heap"
	AnalyzeVerb = "heap analyze"
	InfoVerb    = "heap info"
	StatusVerb  = "heap status"

	reanalyzeQuestion = "Heap already analyzed and appears valid. Are you sure you want to reanalyze? [y/n] "
)

// baseCommands are registered whatever the allocator. The prefix comes
// first: registering it drops every sub-command, allocator ones included.
func baseCommands(s *State) []*host.Command {
	return []*host.Command{
		{
			Name:     PrefixVerb,
			Category: host.CategoryData,
			Prefix:   true,
			Doc: "Commands for analyzing the heap of the current target. Available commands\n" +
				"differ by heap implementation, and may become unavailable when switching targets.",
			Invoke: invokePrefix(PrefixVerb),
		},
		{
			Name:     InfoVerb,
			Category: host.CategoryData,
			Doc:      "Info on the heap implementation",
			Invoke:   Gated(s.heapInfo, NoArgs),
		},
		{
			Name:     AnalyzeVerb,
			Category: host.CategoryData,
			Doc: "Analyze the heap. This must be called any time the heap changes.\n\n" +
				"Analyzing the heap may take several seconds for multi-gigabyte heaps",
			Invoke: Gated(s.heapAnalyze,
				RequireRunningOrCore(s.host, "Can only analyze heap for a running process or core dump"),
				NoArgs),
		},
		{
			Name:     StatusVerb,
			Category: host.CategoryData,
			Doc:      "List every known target and the state of its heap analysis",
			Invoke:   Gated(s.heapStatus, NoArgs),
		},
	}
}

// invokePrefix handles a prefix command run without a known sub-command
func invokePrefix(name string) func(inv *host.Invocation) error {
	return func(inv *host.Invocation) error {
		argv, err := inv.Argv()
		if err != nil {
			return err
		}
		if len(argv) > 0 {
			return fmt.Errorf("Undefined %s command: \"%s\". Try \"help %s\".", name, argv[0], name)
		}
		return fmt.Errorf("\"%s\" must be followed by the name of a %s command", name, name)
	}
}

func (s *State) heapInfo(inv *host.Invocation) error {
	slot, err := s.CurrentSlot()
	if err != nil {
		return err
	}

	switch slot.Kind {
	case Unanalyzed:
		inv.Println("Heap not yet analyzed")
	case Unsupported:
		inv.Println("Unknown heap implementation")
	default:
		inv.Println(slot.Analyzer.Description())
	}
	return nil
}

// heapAnalyze detects the heap of a new target, silently reanalyzes a
// stale one and asks before redoing a still valid analysis
func (s *State) heapAnalyze(inv *host.Invocation) error {
	slot, err := s.CurrentSlot()
	if err != nil {
		return err
	}

	switch slot.Kind {
	case Unanalyzed:
		slot, err = s.DetectHeap()
		if err != nil {
			return err
		}
		if slot.Kind != Analyzed {
			inv.Println("Unknown heap implementation")
			return nil
		}
	case Unsupported:
		inv.Println("Unknown heap implementation")
		return nil
	default:
		if slot.Analyzer.IsValid() {
			if inv.Prompt == nil || !inv.Prompt.Confirm(reanalyzeQuestion) {
				return nil
			}
		}
	}

	if err := s.Analyze(slot.Analyzer); err != nil {
		return err
	}
	inv.Printf("Analyzed %s\n", slot.Analyzer.Description())
	return nil
}

func (s *State) heapStatus(inv *host.Invocation) error {
	slots := s.Slots()
	if len(slots) == 0 {
		inv.Println("No targets")
		return nil
	}

	for _, ts := range slots {
		marker := " "
		if ts.Selected {
			marker = "*"
		}

		status := ts.Slot.Kind.String()
		if ts.Slot.Kind == Analyzed {
			validity := "valid"
			if !ts.Slot.Analyzer.IsValid() {
				validity = "stale"
			}
			status = fmt.Sprintf("%s (%s)", ts.Slot.Analyzer.Description(), validity)
		}
		inv.Printf("%s %-4d %-32s %s\n", marker, ts.Target.ID(), ts.Target.Name(), status)
	}
	return nil
}

// AnalyzerCommand builds an allocator command for a. The body only runs
// when debug symbols for pkg are loaded (pkg may be empty), no arguments
// were given and a's analysis is current.
func AnalyzerCommand(s *State, a Analyzer, name, doc, pkg string, body Handler) *host.Command {
	gates := []Gate{}
	if pkg != "" {
		gates = append(gates, RequireDebugInfo(s.DebugInfo(), pkg))
	}
	gates = append(gates, NoArgs, RequireValidAnalyzer(a))

	return &host.Command{
		Name:     name,
		Category: host.CategoryData,
		Doc:      doc,
		Invoke:   Gated(body, gates...),
	}
}
