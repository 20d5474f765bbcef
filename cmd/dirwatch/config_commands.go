package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/dirwatch/pkg/config"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	opts   *globalOptions
	format string
	output string
	force  bool
	out    io.Writer
}

func newConfigCommand(opts *globalOptions) *cobra.Command {
	c := &configCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.runShow()
		},
	}
	show.Flags().StringVarP(&c.format, "format", "f", "yaml", "output format (yaml, json)")

	path := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.runPath()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.runInit()
		},
	}
	initCmd.Flags().StringVarP(&c.output, "output", "o", "", "config file path (default: ~/.config/dirwatch/config.yaml)")
	initCmd.Flags().BoolVar(&c.force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}

// runShow displays the current configuration.
func (c *configCommand) runShow() error {
	cfg, err := loadConfig(c.opts.configPath)
	if err != nil {
		return err
	}

	switch c.format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(c.out, string(data))
		return nil
	case "yaml", "":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(c.out, "# Current Configuration")
		fmt.Fprintln(c.out, "# Source:", c.source())
		fmt.Fprintln(c.out)
		fmt.Fprint(c.out, string(data))
		return nil
	default:
		return fmt.Errorf("invalid format %q (want yaml or json)", c.format)
	}
}

// runPath shows the configuration file search paths.
func (c *configCommand) runPath() error {
	fmt.Fprintln(c.out, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(c.out)

	for i, p := range config.SearchPaths() {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Fprintf(c.out, "  %d. %s [%s]\n", i+1, p, exists)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Active configuration:", c.source())
	return nil
}

// runInit writes the default configuration.
func (c *configCommand) runInit() error {
	path := c.output
	if path == "" {
		path = c.opts.configPath
	}
	if path == "" {
		path = config.DefaultPath()
	}

	if !c.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Configuration written to %s\n", path)
	return nil
}

// source describes where the active configuration comes from.
func (c *configCommand) source() string {
	if path := config.NewLoader(c.opts.configPath).Path(); path != "" {
		return path
	}
	return "defaults (no config file found)"
}
