package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mabhi256/heapscope/internal/events"
	"github.com/mabhi256/heapscope/internal/host"
	"github.com/mabhi256/heapscope/internal/tui"
	"github.com/mabhi256/heapscope/utils"
)

func (s *Session) registerBuiltins() {
	builtins := []*host.Command{
		{
			Name:     "target",
			Category: host.CategorySupport,
			Prefix:   true,
			Doc:      "Manage the targets being debugged",
			Invoke: func(inv *host.Invocation) error {
				return s.listTargets(inv)
			},
		},
		{
			Name:     "target list",
			Category: host.CategorySupport,
			Doc:      "List the targets, the selected one is marked with *",
			Invoke:   s.listTargets,
		},
		{
			Name:       "target select",
			Category:   host.CategorySupport,
			Completion: host.CompleteTarget,
			Doc:        "Select the target with the given ID",
			Invoke:     s.selectTarget,
		},
		{
			Name:     "target pick",
			Category: host.CategorySupport,
			Doc:      "Choose the selected target from an interactive list",
			Invoke:   s.pickTarget,
		},
		{
			Name:       "target remove",
			Category:   host.CategorySupport,
			Completion: host.CompleteTarget,
			Doc:        "Forget the target with the given ID",
			Invoke:     s.removeTarget,
		},
		{
			Name:     "attach",
			Category: host.CategoryRunning,
			Doc:      "Add a running process as a target: attach PID",
			Invoke:   s.attach,
		},
		{
			Name:       "core",
			Category:   host.CategoryFiles,
			Completion: host.CompleteFilename,
			Doc:        "Add a core dump as a target: core FILE",
			Invoke:     s.core,
		},
		{
			Name:       "help",
			Category:   host.CategorySupport,
			Completion: host.CompleteCommand,
			Doc:        "Describe commands: help [COMMAND]",
			Invoke:     s.help,
		},
		{
			Name:     "quit",
			Category: host.CategorySupport,
			Doc:      "Exit heapscope",
			Invoke: func(inv *host.Invocation) error {
				s.quit = true
				return nil
			},
		},
	}

	for _, verb := range events.ContinueVerbs {
		builtins = append(builtins, &host.Command{
			Name:     verb,
			Category: host.CategoryRunning,
			Doc:      "Resume the selected target",
			Invoke:   s.resume,
		})
	}

	for _, cmd := range builtins {
		if err := s.cmds.register(cmd); err != nil {
			panic(fmt.Sprintf("session: registering builtin %q: %v", cmd.Name, err))
		}
	}
}

func singleIntArg(inv *host.Invocation, what string) (int, error) {
	argv, err := inv.Argv()
	if err != nil {
		return 0, err
	}
	if len(argv) != 1 {
		return 0, fmt.Errorf("expected a single %s argument", what)
	}
	n, err := strconv.Atoi(argv[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, argv[0])
	}
	return n, nil
}

func (s *Session) listTargets(inv *host.Invocation) error {
	targets := s.Targets()
	if len(targets) == 0 {
		inv.Println("No targets.")
		return nil
	}

	selected, _ := s.SelectedTarget()
	inv.Printf("  %-4s %-6s %-40s %s\n", "Num", "Kind", "Description", "State")
	for _, t := range targets {
		marker := " "
		if t == selected {
			marker = "*"
		}
		state := stateOf(t)
		inv.Printf("%s %-4d %-6s %-40s %s\n", marker, t.ID(), kindOf(t), t.Name(), utils.StateStyle(state).Render(state))
	}
	return nil
}

func kindOf(t host.Target) string {
	if t.IsCoreDump() {
		return "core"
	}
	return "live"
}

func stateOf(t host.Target) string {
	switch {
	case !t.IsValid():
		return "gone"
	case t.IsRunning():
		return "running"
	case t.IsCoreDump():
		return "post-mortem"
	default:
		return "not running"
	}
}

func (s *Session) selectTarget(inv *host.Invocation) error {
	id, err := singleIntArg(inv, "target ID")
	if err != nil {
		return err
	}
	t, err := s.Select(id)
	if err != nil {
		return err
	}
	inv.Printf("[Switching to target %d (%s)]\n", t.ID(), t.Name())
	return nil
}

func (s *Session) pickTarget(inv *host.Invocation) error {
	targets := s.Targets()
	if len(targets) == 0 {
		return errors.New("no targets to pick from")
	}

	selected, _ := s.SelectedTarget()
	t, err := tui.PickTarget(targets, selected)
	if err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	if _, err := s.Select(t.ID()); err != nil {
		return err
	}
	inv.Printf("[Switching to target %d (%s)]\n", t.ID(), t.Name())
	return nil
}

func (s *Session) removeTarget(inv *host.Invocation) error {
	id, err := singleIntArg(inv, "target ID")
	if err != nil {
		return err
	}
	if err := s.Remove(id); err != nil {
		return err
	}
	inv.Printf("Removed target %d\n", id)
	return nil
}

func (s *Session) attach(inv *host.Invocation) error {
	pid, err := singleIntArg(inv, "process ID")
	if err != nil {
		return err
	}
	t, err := s.Attach(pid)
	if err != nil {
		return err
	}
	inv.Printf("Attached to %s as target %d\n", t.Name(), t.ID())
	return nil
}

func (s *Session) core(inv *host.Invocation) error {
	argv, err := inv.Argv()
	if err != nil {
		return err
	}
	if len(argv) != 1 {
		return errors.New("expected a single core file argument")
	}
	t, err := s.LoadCore(argv[0])
	if err != nil {
		return err
	}
	inv.Printf("Loaded %s as target %d\n", t.Name(), t.ID())
	return nil
}

func (s *Session) resume(inv *host.Invocation) error {
	t, err := s.SelectedTarget()
	if err != nil {
		return errors.New("The program is not being run.")
	}
	if !t.IsRunning() {
		return errors.New("The program is not being run.")
	}

	s.fireContinue()
	inv.Println("Continuing.")
	return nil
}

func (s *Session) help(inv *host.Invocation) error {
	topic := strings.TrimSpace(inv.Args)
	if topic == "" {
		inv.Println("List of commands:")
		inv.Println()
		for _, cmd := range s.cmds.commands("") {
			if strings.Contains(cmd.Name, " ") {
				continue
			}
			inv.Printf("  %-16s -- %s\n", cmd.Name, firstLine(cmd.Doc))
		}
		inv.Println()
		inv.Println(`Type "help" followed by a command name for full documentation.`)
		return nil
	}

	cmd, rest, ok := s.cmds.lookup(topic)
	if !ok || rest != "" {
		return fmt.Errorf("Undefined command: %q. Try \"help\".", topic)
	}

	inv.Println(cmd.Doc)
	if cmd.Prefix {
		inv.Println()
		inv.Printf("List of %s subcommands:\n\n", cmd.Name)
		for _, sub := range s.cmds.commands(cmd.Name) {
			inv.Printf("  %-24s -- %s\n", sub.Name, firstLine(sub.Doc))
		}
	}
	return nil
}

func firstLine(doc string) string {
	line, _, _ := strings.Cut(doc, "\n")
	return line
}
