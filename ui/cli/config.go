// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/toeirei/panelctl/internal/config"
	"github.com/toeirei/panelctl/internal/i18n"
	"github.com/toeirei/panelctl/internal/ui"
)

// newConfigCmd manages the manager's own settings file.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write panelctl settings",
	}

	var (
		system bool
		path   string
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := config.WriteConfigFile(&currentServices.Settings, system, path)
			if err != nil {
				return fail(err)
			}
			ui.NewPrinter(cmd.OutOrStdout()).Success("%s", i18n.T("config.written", written))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&system, "system", true, "write to /etc/panelctl instead of the user config directory")
	initCmd.Flags().StringVar(&path, "path", "", "write to this file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(currentServices.Settings)
			if err != nil {
				return fail(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
