package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/dirwatch/pkg/display"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

// errQuit is returned by the console when the user asks to leave.
var errQuit = errors.New("quit")

const consoleHelp = `Commands:
  add EXT DIR [r]      watch DIR for EXT files (r: include subdirectories)
  remove EXT DIR [r]   stop watching DIR for EXT files
  save                 commit staged events to the log
  clear                discard staged events
  roots                list watched roots
  stats                show session counters
  help                 show this help
  quit                 stop watching and exit
`

// console executes interactive commands against a running manager.
type console struct {
	manager   watcher.Manager
	formatter display.Formatter
	out       io.Writer
}

// execute runs a single command line. Blank lines are ignored.
//
// Returns errQuit for quit/exit, otherwise the command's error.
func (c *console) execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "add":
		return c.runAdd(args)
	case "remove", "rm":
		return c.runRemove(args)
	case "save", "commit":
		return c.runSave()
	case "clear", "discard":
		return c.runClear()
	case "roots":
		return c.formatter.FormatRoots(c.out, c.manager.Roots())
	case "stats":
		return c.runStats()
	case "help", "?":
		_, err := io.WriteString(c.out, consoleHelp)
		return err
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (type help for a list)", name)
	}
}

func (c *console) runAdd(args []string) error {
	ext, dir, recursive, err := parseDirArgs("add", args)
	if err != nil {
		return err
	}
	if err := c.manager.AddDir(ext, dir, recursive); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Watching %s for %s%s\n", dir, ext, recursiveSuffix(recursive))
	return nil
}

func (c *console) runRemove(args []string) error {
	ext, dir, recursive, err := parseDirArgs("remove", args)
	if err != nil {
		return err
	}
	if err := c.manager.RemoveDir(ext, dir, recursive); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Stopped watching %s for %s%s\n", dir, ext, recursiveSuffix(recursive))
	return nil
}

func (c *console) runSave() error {
	n, err := c.manager.CommitToLog()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Committed %d events to the log\n", n)
	return nil
}

func (c *console) runClear() error {
	if err := c.manager.ClearLog(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Staged events discarded")
	return nil
}

func (c *console) runStats() error {
	s := c.manager.Stats()
	fmt.Fprintf(c.out, "Session:       %s\n", s.SessionID)
	fmt.Fprintf(c.out, "Roots:         %d\n", s.Roots)
	fmt.Fprintf(c.out, "Directories:   %d\n", s.Registrations)
	fmt.Fprintf(c.out, "Delivered:     %d\n", s.EventsDelivered)
	fmt.Fprintf(c.out, "Filtered:      %d\n", s.EventsFiltered)
	fmt.Fprintf(c.out, "Staged:        %d (failed %d)\n", s.Staging.Staged, s.Staging.Failed)
	fmt.Fprintf(c.out, "Committed:     %d\n", s.Staging.Committed)
	fmt.Fprintf(c.out, "Dropped msgs:  %d\n", s.Bus.Dropped)
	return nil
}

// parseDirArgs parses "EXT DIR [r]".
func parseDirArgs(cmd string, args []string) (ext, dir string, recursive bool, err error) {
	if len(args) < 2 || len(args) > 3 {
		return "", "", false, fmt.Errorf("usage: %s EXT DIR [r]", cmd)
	}
	if len(args) == 3 {
		switch strings.ToLower(args[2]) {
		case "r", "-r", "recursive":
			recursive = true
		default:
			return "", "", false, fmt.Errorf("usage: %s EXT DIR [r]", cmd)
		}
	}
	return args[0], args[1], recursive, nil
}

func recursiveSuffix(recursive bool) string {
	if recursive {
		return " (recursive)"
	}
	return ""
}
