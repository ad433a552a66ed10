package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/hemisphere-go/hemisphere/internal/gekko"
)

// REPL drives a Monitor from a raw-mode terminal, the command-line
// counterpart of the teacher's inputLine/cursorPos/history fields
// (which fed an on-screen Ebiten text box instead of a real tty).
type REPL struct {
	m    *Monitor
	out  io.Writer
	term *term.Terminal
}

// os_File is the minimal part of *os.File a REPL needs: a file
// descriptor to put in raw mode. Kept as an interface so tests can
// supply a fake instead of a real tty.
type os_File interface {
	Fd() uintptr
}

// NewREPL wraps in/out as a line-editing terminal, putting fd(in) into
// raw mode for the duration of Run. Callers on a non-tty fd (tests,
// pipes) should skip raw mode and drive a Monitor directly instead.
func NewREPL(in io.Reader, out io.Writer, fd os_File) (*REPL, func() error, error) {
	state, err := term.MakeRaw(int(fd.Fd()))
	if err != nil {
		return nil, nil, fmt.Errorf("debug: enter raw mode: %w", err)
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, "(monitor) ")
	restore := func() error { return term.Restore(int(fd.Fd()), state) }
	return &REPL{term: t, out: out}, restore, nil
}

// Attach binds the REPL to a Monitor. Separate from NewREPL so a
// single REPL can be reused across CPU resets that replace the
// underlying Monitor (mirrors the teacher's ResetCPUs, which tears
// down and rebuilds monitor-owned CPU state without touching the
// monitor/terminal itself).
func (r *REPL) Attach(m *Monitor) { r.m = m }

// Run reads commands until the reader is exhausted or "quit" is typed.
// Unrecognized commands and Lua errors are reported but never abort
// the loop, matching the teacher's tolerant one-mistake-doesn't-kill-
// the-session monitor behavior.
func (r *REPL) Run() error {
	for {
		line, err := r.term.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		if err := r.Dispatch(cmd); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if cmd == "quit" || cmd == "q" {
			return nil
		}
		for _, l := range r.m.Output() {
			fmt.Fprintln(r.out, l.Text)
		}
	}
}

// Dispatch executes one monitor command line. The command set is
// deliberately small: step/registers/disassemble/break/clear/macro/
// run/quit, each named after the teacher's monitor actions of the same
// purpose.
func (r *REPL) Dispatch(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "step", "s":
		r.m.Step()
		return nil
	case "registers", "r":
		r.m.ShowRegisters()
		return nil
	case "disassemble", "d":
		count := 8
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				count = n
			}
		}
		r.m.ShowDisassembly(count)
		return nil
	case "break", "b":
		if len(fields) < 2 {
			return fmt.Errorf("usage: break <addr> [condition...]")
		}
		addr, err := parseAddr(fields[1])
		if err != nil {
			return err
		}
		cond := strings.Join(fields[2:], " ")
		r.m.SetBreakpoint(addr, cond)
		return nil
	case "clear", "c":
		if len(fields) < 2 {
			return fmt.Errorf("usage: clear <addr>")
		}
		addr, err := parseAddr(fields[1])
		if err != nil {
			return err
		}
		r.m.ClearBreakpoint(addr)
		return nil
	case "macro":
		if len(fields) < 2 {
			return fmt.Errorf("usage: macro <name> <cmd>; <cmd>; ...")
		}
		parts := strings.SplitN(cmd, " ", 3)
		if len(parts) < 3 {
			return fmt.Errorf("usage: macro <name> <cmd>; <cmd>; ...")
		}
		commands := strings.Split(parts[2], ";")
		for i := range commands {
			commands[i] = strings.TrimSpace(commands[i])
		}
		r.m.DefineMacro(fields[1], commands)
		return nil
	case "run":
		if len(fields) < 2 {
			return fmt.Errorf("usage: run <macro-name>")
		}
		return r.m.RunMacro(fields[1], r.Dispatch)
	case "quit", "q":
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseAddr(s string) (gekko.Address, error) {
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return gekko.Address(v), nil
}
