// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/toeirei/panelctl/internal/core"
)

// newBackupCmd runs one backup. Step failures are reported through the bot
// and the backup log; only a missing env file fails the command.
func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the deployment and send it through the messaging bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := core.RunBackupCmd(cmd.Context(), currentServices)
			return fail(err)
		},
	}
	cmd.AddCommand(newBackupDecryptCmd())
	return cmd
}

func newBackupDecryptCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "decrypt <archive.enc> [output]",
		Short: "Decrypt an encrypted backup archive",
		Long: `Decrypt reverses the encryption applied when BACKUP_ENCRYPTION_PASSWORD is
set. Without --password the value from the env file is used, then a prompt.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := ""
			if len(args) == 2 {
				dst = args[1]
			}
			_, err := core.RunBackupDecryptCmd(cmd.Context(), currentServices, args[0], dst, password)
			return fail(err)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "encryption password")
	return cmd
}

// newBackupServiceCmd configures the scheduled backup.
func newBackupServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup-service",
		Short: "Configure scheduled backups delivered through the messaging bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := core.RunBackupServiceCmd(cmd.Context(), currentServices)
			return fail(err)
		},
	}
}
