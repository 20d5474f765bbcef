package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/0xmhha/dirwatch/pkg/display"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
)

// logCommand prints the durable event log.
type logCommand struct {
	opts    *globalOptions
	format  string
	limit   int
	summary bool
	compact bool
	out     io.Writer
}

func newLogCommand(opts *globalOptions) *cobra.Command {
	c := &logCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show committed events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.Execute()
		},
	}

	cmd.Flags().StringVarP(&c.format, "format", "f", "", "output format (table, json, simple)")
	cmd.Flags().IntVarP(&c.limit, "limit", "n", 0, "show only the most recent N events")
	cmd.Flags().BoolVar(&c.summary, "summary", false, "show totals instead of rows")
	cmd.Flags().BoolVar(&c.compact, "compact", false, "compact output")
	return cmd
}

// Execute runs the log command.
func (c *logCommand) Execute() error {
	if c.limit < 0 {
		return fmt.Errorf("invalid --limit %d", c.limit)
	}

	cfg, err := loadConfig(c.opts.configPath)
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	formatter, err := a.formatter(c.format, c.compact)
	if err != nil {
		return err
	}

	entries, err := a.store.Log(c.limit)
	if err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}

	if c.summary {
		events := make([]fsevent.Event, 0, len(entries))
		for _, entry := range entries {
			events = append(events, entry.Event)
		}
		return formatter.FormatSummary(c.out, display.Summarize(events))
	}
	return formatter.FormatLog(c.out, entries)
}

// stagedCommand prints rows staged but not yet committed.
type stagedCommand struct {
	opts    *globalOptions
	format  string
	summary bool
	out     io.Writer
}

func newStagedCommand(opts *globalOptions) *cobra.Command {
	c := &stagedCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "staged",
		Short: "Show staged events that have not been committed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.Execute()
		},
	}

	cmd.Flags().StringVarP(&c.format, "format", "f", "", "output format (table, json, simple)")
	cmd.Flags().BoolVar(&c.summary, "summary", false, "show totals instead of rows")
	return cmd
}

// Execute runs the staged command.
func (c *stagedCommand) Execute() error {
	cfg, err := loadConfig(c.opts.configPath)
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	formatter, err := a.formatter(c.format, false)
	if err != nil {
		return err
	}

	entries, err := a.pipeline.Recover()
	if err != nil {
		return err
	}

	if c.summary {
		events := make([]fsevent.Event, 0, len(entries))
		for _, entry := range entries {
			events = append(events, entry.Event)
		}
		return formatter.FormatSummary(c.out, display.Summarize(events))
	}
	return formatter.FormatStaged(c.out, entries)
}

// commitCommand promotes staged rows to the log.
type commitCommand struct {
	opts *globalOptions
	out  io.Writer
}

func newCommitCommand(opts *globalOptions) *cobra.Command {
	c := &commitCommand{opts: opts}
	return &cobra.Command{
		Use:   "commit",
		Short: "Commit staged events to the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.Execute()
		},
	}
}

// Execute runs the commit command.
func (c *commitCommand) Execute() error {
	cfg, err := loadConfig(c.opts.configPath)
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.pipeline.Commit()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Committed %d events to the log\n", n)
	return nil
}

// discardCommand empties staging.
type discardCommand struct {
	opts *globalOptions
	out  io.Writer
}

func newDiscardCommand(opts *globalOptions) *cobra.Command {
	c := &discardCommand{opts: opts}
	return &cobra.Command{
		Use:   "discard",
		Short: "Discard staged events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.Execute()
		},
	}
}

// Execute runs the discard command.
func (c *discardCommand) Execute() error {
	cfg, err := loadConfig(c.opts.configPath)
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.pipeline.Discard(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Staged events discarded")
	return nil
}

// rootsCommand prints the watched-roots table of the last session.
type rootsCommand struct {
	opts   *globalOptions
	format string
	out    io.Writer
}

func newRootsCommand(opts *globalOptions) *cobra.Command {
	c := &rootsCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "roots",
		Short: "Show the roots recorded by the last session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.Execute()
		},
	}

	cmd.Flags().StringVarP(&c.format, "format", "f", "", "output format (table, json, simple)")
	return cmd
}

// Execute runs the roots command.
func (c *rootsCommand) Execute() error {
	cfg, err := loadConfig(c.opts.configPath)
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	formatter, err := a.formatter(c.format, false)
	if err != nil {
		return err
	}

	roots, err := a.store.WatchedRoots()
	if err != nil {
		return fmt.Errorf("failed to read watched roots: %w", err)
	}
	return formatter.FormatWatchedRoots(c.out, roots)
}
