// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/toeirei/panelctl/internal/core"
)

// newUpCmd starts the deployment.
func newUpCmd() *cobra.Command {
	var noLogs bool
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the panel services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunUpCmd(cmd.Context(), currentServices, noLogs))
		},
	}
	cmd.Flags().BoolVarP(&noLogs, "no-logs", "n", false, "do not follow logs after starting")
	return cmd
}

// newDownCmd stops the deployment.
func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop the panel services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunDownCmd(cmd.Context(), currentServices))
		},
	}
}

// newRestartCmd recreates the deployment.
func newRestartCmd() *cobra.Command {
	var noLogs bool
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the panel services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunRestartCmd(cmd.Context(), currentServices, noLogs))
		},
	}
	cmd.Flags().BoolVarP(&noLogs, "no-logs", "n", false, "do not follow logs after restarting")
	return cmd
}

// newStatusCmd reports install and run state. The status line is the
// whole output, so failures exit quietly.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the panel is installed and running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := core.RunStatusCmd(cmd.Context(), currentServices); err != nil {
				return &ExitError{Code: 1, Err: err, Quiet: true}
			}
			return nil
		},
	}
}

// newLogsCmd shows the service logs.
func newLogsCmd() *cobra.Command {
	var noFollow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the panel logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunLogsCmd(cmd.Context(), currentServices, !noFollow))
		},
	}
	cmd.Flags().BoolVarP(&noFollow, "no-follow", "n", false, "print the logs and exit")
	return cmd
}

// newCLICmd forwards everything after the verb to the panel's own CLI.
func newCLICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cli -- [args...]",
		Short: "Run the panel command line inside its container",
		// The panel CLI owns its flags.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && args[0] == "--" {
				args = args[1:]
			}
			return fail(core.RunCLICmd(cmd.Context(), currentServices, args))
		},
	}
}

// newEditCmd opens the compose file in an editor.
func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the compose file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunEditCmd(cmd.Context(), currentServices))
		},
	}
}

// newEditEnvCmd opens the env file in an editor.
func newEditEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit-env",
		Short: "Edit the environment file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunEditEnvCmd(cmd.Context(), currentServices))
		},
	}
}
