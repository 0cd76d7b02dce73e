package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/atinyakov/issuetracker/internal/output"
)

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key  string
	Flag string
}

var configKeys = []configKeyInfo{
	{Key: "server", Flag: "server"},
	{Key: "token_file", Flag: "token-file"},
	{Key: "timeout", Flag: "timeout"},
	{Key: "verbose", Flag: "verbose"},
}

// envVar is the variable viper's AutomaticEnv reads for key.
func envVar(key string) string { return envPrefix + "_" + strings.ToUpper(key) }

func (c *cli) configCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration with sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			return c.configShowRun(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.configInitRun(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.AddCommand(initCmd)
	return cmd
}

func (c *cli) effectiveConfig() map[string]any {
	out := make(map[string]any, len(configKeys))
	for _, k := range configKeys {
		v := c.v.Get(k.Key)
		if k.Key == "timeout" {
			v = c.v.GetDuration(k.Key).String()
		}
		out[k.Key] = v
	}
	return out
}

func (c *cli) configShowRun(cmd *cobra.Command, f output.Format) error {
	values := c.effectiveConfig()
	if f != output.FormatTable {
		return c.ui.Encode(f, values)
	}

	path, _, err := c.configFile(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		c.ui.Info("Config file: %s", path)
	} else {
		c.ui.Info("Config file: (none)")
	}
	fmt.Fprintln(c.ui.Out)

	table := c.ui.Table([]string{"Key", "Value", "Source"})
	for _, k := range configKeys {
		if err := table.Append([]string{k.Key, fmt.Sprint(values[k.Key]), c.source(cmd, k)}); err != nil {
			return err
		}
	}
	return table.Render()
}

// source reports which layer supplied the effective value of k.
func (c *cli) source(cmd *cobra.Command, k configKeyInfo) string {
	switch {
	case cmd.Flags().Changed(k.Flag):
		return "flag --" + k.Flag
	case os.Getenv(envVar(k.Key)) != "":
		return "env " + envVar(k.Key)
	case c.v.InConfig(k.Key):
		return "config file"
	default:
		return "default"
	}
}

func (c *cli) configInitRun(cmd *cobra.Command, force bool) error {
	path, _, err := c.configFile(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(c.effectiveConfig())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	c.ui.Success("Config file created: %s", path)
	return nil
}
