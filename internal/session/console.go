package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mabhi256/heapscope/internal/host"
	"github.com/mabhi256/heapscope/utils"
)

const consolePrompt = "(heapscope) "

// Console reads command lines and runs each on the privileged thread. It
// answers confirmation questions from the same input, which is safe since
// the console goroutine is parked in Do while a command runs.
type Console struct {
	session *Session
	poster  host.Poster
	in      *bufio.Scanner
	out     io.Writer
	tty     bool
}

func NewConsole(s *Session, poster host.Poster, in io.Reader, out io.Writer, tty bool) *Console {
	c := &Console{
		session: s,
		poster:  poster,
		in:      bufio.NewScanner(in),
		out:     out,
		tty:     tty,
	}
	s.SetPrompter(c)
	return c
}

// Run returns when the input ends, the operator quits or ctx is done
func (c *Console) Run(ctx context.Context) error {
	for {
		if c.tty {
			fmt.Fprint(c.out, utils.InfoStyle.Render(consolePrompt))
		}
		if !c.in.Scan() {
			if c.tty {
				fmt.Fprintln(c.out, "quit")
			}
			return c.in.Err()
		}

		line := c.in.Text()
		if !c.tty && strings.TrimSpace(line) != "" {
			fmt.Fprintln(c.out, utils.MutedStyle.Render(consolePrompt+line))
		}

		if err := c.poster.Do(ctx, func() { c.session.Execute(line) }); err != nil {
			return err
		}
		if c.session.Quit() {
			return nil
		}
	}
}

// Confirm asks question and reads the answer from the console input
func (c *Console) Confirm(question string) bool {
	fmt.Fprint(c.out, question)
	if !c.in.Scan() {
		fmt.Fprintln(c.out, "EOF [answered N; input not from terminal]")
		return false
	}

	answer := strings.TrimSpace(c.in.Text())
	if !c.tty {
		fmt.Fprintln(c.out, answer)
	}
	return answer == "y" || answer == "Y"
}
