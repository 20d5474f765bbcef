// Package main provides the dirwatch CLI application.
//
// dirwatch watches directory trees for files being created, modified or
// deleted. Captured events are staged while a session runs and promoted
// to a durable log on request.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	configPath string
}

// newRootCommand builds the dirwatch command tree.
func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "dirwatch",
		Short: "Watch directories and log file changes",
		Long: `dirwatch watches directory trees for created, modified and deleted files.

Events matching the configured extensions are staged while a session runs.
Staged events are committed to the durable log with "save" (or --save-on-exit)
and can be reviewed later with "dirwatch log".

Examples:
  dirwatch watch --dir .go:./src:r --dir '*:/tmp/drop'
  dirwatch log --limit 20
  dirwatch log --summary
  dirwatch config init`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")

	root.AddCommand(
		newWatchCommand(opts),
		newLogCommand(opts),
		newStagedCommand(opts),
		newCommitCommand(opts),
		newDiscardCommand(opts),
		newRootsCommand(opts),
		newConfigCommand(opts),
	)
	return root
}
