// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/toeirei/panelctl/internal/acme"
	"github.com/toeirei/panelctl/internal/core"
	"github.com/toeirei/panelctl/internal/release"
)

// certMode turns the --wildcard/--standard pair into a mode name. Empty
// means ask.
func certMode(wildcard, standard bool) string {
	switch {
	case wildcard:
		return acme.Wildcard.String()
	case standard:
		return acme.Standard.String()
	}
	return ""
}

func addCertModeFlags(fs *pflag.FlagSet, wildcard, standard *bool) {
	fs.BoolVar(wildcard, "wildcard", false, "issue wildcard certificates through a DNS provider")
	fs.BoolVar(standard, "standard", false, "issue one certificate through the HTTP challenge")
}

// newInstallCmd produces a deployment from scratch.
func newInstallCmd() *cobra.Command {
	var (
		opts               core.InstallOptions
		dev                bool
		wildcard, standard bool
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the panel, its database, proxy core and edge services",
		Long: `Install fetches the compose and env templates, downloads the proxy core,
generates its key pair and starts the containers. On Debian family hosts it
then issues certificates, configures the load balancer and opens ports 80
and 443.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dev {
				opts.Version = release.Dev
			}
			opts.Mode = certMode(wildcard, standard)
			_, err := core.RunInstallCmd(cmd.Context(), currentServices, opts)
			return fail(err)
		},
	}
	cmd.Flags().StringVar(&opts.Domains, "domain", "", "comma separated domains for the certificate")
	cmd.Flags().StringVar(&opts.Database, "database", "sqlite", "database backend: sqlite, mysql or mariadb")
	cmd.Flags().BoolVar(&dev, "dev", false, "install the development image")
	cmd.Flags().StringVar(&opts.Version, "version", "", "install a specific panel version (vX.Y.Z)")
	addCertModeFlags(cmd.Flags(), &wildcard, &standard)
	cmd.MarkFlagsMutuallyExclusive("dev", "version")
	cmd.MarkFlagsMutuallyExclusive("wildcard", "standard")
	return cmd
}

// newUpdateCmd pulls new images and recreates the containers.
func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update the panel images and the management command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunUpdateCmd(cmd.Context(), currentServices))
		},
	}
}

// newUninstallCmd removes the deployment.
func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := core.RunUninstallCmd(cmd.Context(), currentServices)
			return fail(err)
		},
	}
}

// newInstallScriptCmd installs this binary as the management command.
func newInstallScriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-script",
		Short: "Install this binary as the management command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fail(core.RunInstallScriptCmd(cmd.Context(), currentServices))
		},
	}
}

// newCoreUpdateCmd switches the proxy core release.
func newCoreUpdateCmd() *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "core-update",
		Short: "Install another proxy core release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := core.RunCoreUpdateCmd(cmd.Context(), currentServices, version)
			return fail(err)
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "release tag to install, or latest (default: choose from recent releases)")
	return cmd
}

// newSSLCertCmd issues and installs certificates.
func newSSLCertCmd() *cobra.Command {
	var (
		opts               core.SSLOptions
		wildcard, standard bool
	)
	cmd := &cobra.Command{
		Use:   "ssl-cert",
		Short: "Issue certificates and route the domains to the panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Mode = certMode(wildcard, standard)
			_, err := core.RunSSLCertCmd(cmd.Context(), currentServices, opts)
			return fail(err)
		},
	}
	cmd.Flags().StringVar(&opts.Domains, "domain", "", "comma separated domains; the first is the primary domain")
	addCertModeFlags(cmd.Flags(), &wildcard, &standard)
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "DNS provider for wildcard certificates")
	cmd.Flags().StringVar(&opts.Email, "email", "", "ACME account email")
	cmd.MarkFlagsMutuallyExclusive("wildcard", "standard")
	return cmd
}
