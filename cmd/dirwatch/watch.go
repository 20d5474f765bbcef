package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/dirwatch/pkg/config"
	"github.com/0xmhha/dirwatch/pkg/monitor"
	"github.com/0xmhha/dirwatch/pkg/staging"
	"github.com/0xmhha/dirwatch/pkg/watcher"
)

// Recovery modes for rows staged by an interrupted session.
const (
	recoverAsk     = "ask"
	recoverCommit  = "commit"
	recoverDiscard = "discard"
)

// watchCommand runs an interactive watch session.
type watchCommand struct {
	opts       *globalOptions
	dirs       []string
	saveOnExit bool
	recover    string
	refresh    time.Duration

	in  io.Reader
	out io.Writer
}

func newWatchCommand(opts *globalOptions) *cobra.Command {
	c := &watchCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Start a watch session",
		Long: `Start a watch session over the configured roots plus any --dir roots.

Each --dir takes EXT:DIR, or EXT:DIR:r to include subdirectories.
EXT is a file extension such as .go, or * for every file.

While the session runs, commands are read from standard input:
  add EXT DIR [r], remove EXT DIR [r], save, clear, roots, stats, quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.in = cmd.InOrStdin()
			c.out = cmd.OutOrStdout()
			return c.Execute()
		},
	}

	cmd.Flags().StringArrayVarP(&c.dirs, "dir", "d", nil, "root to watch as EXT:DIR[:r] (repeatable)")
	cmd.Flags().BoolVar(&c.saveOnExit, "save-on-exit", false, "commit staged events when the session ends")
	cmd.Flags().StringVar(&c.recover, "recover", recoverAsk, "staged events from a previous session: ask, commit or discard")
	cmd.Flags().DurationVar(&c.refresh, "refresh", time.Second, "counter refresh interval")
	return cmd
}

// Execute runs the watch command.
func (c *watchCommand) Execute() error {
	switch c.recover {
	case recoverAsk, recoverCommit, recoverDiscard:
	default:
		return fmt.Errorf("invalid --recover value %q (want ask, commit or discard)", c.recover)
	}

	cfg, err := loadConfig(c.opts.configPath)
	if err != nil {
		return err
	}

	roots, err := c.roots(cfg)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		return errors.New("no roots to watch: pass --dir or add roots to the config file")
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	mgr, err := watcher.New(watcherConfig(cfg.Watch), a.pipeline, a.messages, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			a.logger.Error("failed to close watcher", "error", err)
		}
	}()

	for _, root := range roots {
		for _, ext := range root.ExtensionList() {
			if err := mgr.AddDir(ext, root.Dir, root.Recursive); err != nil {
				return fmt.Errorf("failed to add root %s: %w", root.Dir, err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := readLines(ctx, c.in)

	if err := c.recoverStaged(a.pipeline, lines); err != nil {
		return err
	}

	mon, err := monitor.New(monitor.Config{
		RefreshInterval:  c.refresh,
		Color:            cfg.Display.Color,
		ShowRegistration: true,
	}, mgr, c.out, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	defer func() {
		if err := mon.Close(); err != nil {
			a.logger.Error("failed to close monitor", "error", err)
		}
	}()

	if err := mon.Start(); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	if err := mgr.Start(); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	fmt.Fprintf(c.out, "Watching %d roots. Type help for commands, quit or Ctrl+C to stop.\n", len(mgr.Roots()))

	formatter, err := a.formatter("", false)
	if err != nil {
		return err
	}
	con := &console{manager: mgr, formatter: formatter, out: c.out}

	c.loop(ctx, con, lines)
	return c.shutdown(mgr)
}

// roots merges configured roots with --dir roots.
func (c *watchCommand) roots(cfg *config.Config) ([]config.RootConfig, error) {
	roots := append([]config.RootConfig(nil), cfg.Roots...)
	for _, spec := range c.dirs {
		root, err := config.ParseRoot(spec)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// recoverStaged handles rows left in staging by an interrupted session.
// Starting a session clears staging, so they are committed now or lost.
func (c *watchCommand) recoverStaged(pipeline *staging.Pipeline, lines <-chan string) error {
	entries, err := pipeline.Recover()
	if err != nil {
		fmt.Fprintf(c.out, "Warning: cannot read staged events: %v\n", err)
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	fmt.Fprintf(c.out, "Found %d staged events from a previous session.", len(entries))

	commit := c.recover == recoverCommit
	if c.recover == recoverAsk {
		fmt.Fprint(c.out, " Commit them to the log? [y/N]: ")
		answer := strings.ToLower(strings.TrimSpace(<-lines))
		commit = answer == "y" || answer == "yes"
	} else {
		fmt.Fprintln(c.out)
	}

	if !commit {
		fmt.Fprintf(c.out, "Discarding %d staged events\n", len(entries))
		return nil
	}

	n, err := pipeline.Commit()
	if err != nil {
		return fmt.Errorf("failed to recover staged events: %w", err)
	}
	fmt.Fprintf(c.out, "Committed %d events to the log\n", n)
	return nil
}

// loop executes console commands until quit, end of input or a signal.
func (c *watchCommand) loop(ctx context.Context, con *console, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return

		case line, ok := <-lines:
			if !ok {
				return
			}
			err := con.execute(line)
			if errors.Is(err, errQuit) {
				return
			}
			if err != nil {
				fmt.Fprintf(c.out, "Error: %v\n", err)
			}
		}
	}
}

// shutdown stops the session and commits staged events if requested.
func (c *watchCommand) shutdown(mgr watcher.Manager) error {
	fmt.Fprintln(c.out, "Stopping session...")
	if err := mgr.Stop(); err != nil {
		return fmt.Errorf("failed to stop session: %w", err)
	}

	if !c.saveOnExit {
		return nil
	}
	n, err := mgr.CommitToLog()
	if err != nil {
		return fmt.Errorf("failed to save staged events: %w", err)
	}
	fmt.Fprintf(c.out, "Committed %d events to the log\n", n)
	return nil
}

// readLines delivers input lines on a channel that is closed at end of
// input or once ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
