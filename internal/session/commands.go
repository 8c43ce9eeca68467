package session

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mabhi256/heapscope/internal/host"
)

type commandNode struct {
	cmd      *host.Command
	children map[string]*commandNode
}

func newNode(cmd *host.Command) *commandNode {
	return &commandNode{cmd: cmd, children: make(map[string]*commandNode)}
}

// commandTable holds the registered commands as a tree of prefixes. There
// is no way to remove a command: registering a prefix again starts it over
// with no sub-commands.
type commandTable struct {
	root *commandNode
}

func newCommandTable() *commandTable {
	return &commandTable{root: newNode(nil)}
}

func (ct *commandTable) register(cmd *host.Command) error {
	words := strings.Fields(cmd.Name)
	if len(words) == 0 {
		return fmt.Errorf("command has no name")
	}
	if cmd.Invoke == nil {
		return fmt.Errorf("command %q has no body", cmd.Name)
	}

	parent := ct.root
	for _, word := range words[:len(words)-1] {
		node, ok := parent.children[word]
		if !ok || !node.cmd.Prefix {
			return fmt.Errorf("command %q: %q is not a prefix command", cmd.Name, word)
		}
		parent = node
	}

	name := words[len(words)-1]
	node, ok := parent.children[name]
	if !ok || cmd.Prefix {
		parent.children[name] = newNode(cmd)
		return nil
	}
	node.cmd = cmd
	return nil
}

// nextWord splits the first whitespace separated word off s
func nextWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

// lookup finds the longest registered command at the start of line and
// returns it with the remaining arguments
func (ct *commandTable) lookup(line string) (*host.Command, string, bool) {
	node := ct.root
	rest := line

	for {
		word, after := nextWord(rest)
		if word == "" {
			break
		}
		child, ok := node.children[word]
		if !ok {
			break
		}
		node, rest = child, after
		if !node.cmd.Prefix {
			break
		}
	}

	if node == ct.root {
		return nil, line, false
	}
	return node.cmd, strings.TrimSpace(rest), true
}

// commands returns every registered command below the prefix path, sorted
// by name
func (ct *commandTable) commands(prefix string) []*host.Command {
	node := ct.root
	for _, word := range strings.Fields(prefix) {
		child, ok := node.children[word]
		if !ok {
			return nil
		}
		node = child
	}

	var cmds []*host.Command
	var walk func(n *commandNode)
	walk = func(n *commandNode) {
		for _, child := range n.children {
			cmds = append(cmds, child.cmd)
			walk(child)
		}
	}
	walk(node)

	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Name < cmds[j].Name
	})
	return cmds
}
