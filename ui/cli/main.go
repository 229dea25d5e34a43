// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the root command, configuration loading and the mapping
// of command failures to process exit codes.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toeirei/panelctl/internal/config"
	"github.com/toeirei/panelctl/internal/core"
	"github.com/toeirei/panelctl/internal/i18n"
	"github.com/toeirei/panelctl/internal/logging"
	"github.com/toeirei/panelctl/internal/ui"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

// newServices builds the operation context from the loaded settings.
var newServices = core.NewServices

// ExitError carries the process exit status of a failed command. Quiet
// errors were already reported by the command itself.
type ExitError struct {
	Code  int
	Err   error
	Quiet bool
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

func fail(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: 1, Err: err}
}

// Execute runs the CLI entrypoint. The cmd/panelctl main package should
// call this function and handle process exit.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var ee *ExitError
	if !errors.As(err, &ee) {
		// Flag and argument errors from cobra itself.
		ee = &ExitError{Code: 1, Err: err}
	}
	if !ee.Quiet {
		ui.NewPrinter(rootCmd.ErrOrStderr()).Error("%s", describe(ee.Err))
	}
	return ee
}

// describe turns the precondition sentinels into operator messages.
func describe(err error) string {
	app := "panel"
	if svc := currentServices; svc != nil {
		app = svc.Paths.AppName
	}
	switch {
	case errors.Is(err, core.ErrNotInstalled):
		return i18n.T("errors.not_installed", app)
	case errors.Is(err, core.ErrNotUp):
		return i18n.T("errors.not_up", app)
	case errors.Is(err, core.ErrAlreadyUp):
		return i18n.T("errors.already_up", app)
	case errors.Is(err, core.ErrAlreadyDown):
		return i18n.T("errors.already_down", app)
	case errors.Is(err, core.ErrAborted):
		return i18n.T("errors.aborted")
	}
	return err.Error()
}

// currentServices is the context of the running command, set by
// PersistentPreRunE.
var currentServices *core.Services

func setupServices(cmd *cobra.Command) error {
	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}
	settings, err := config.LoadConfig[config.Settings](cmd, config.Defaults(), path)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	i18n.Init(settings.Language)

	level := settings.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if err := logging.SetLevel(level); err != nil {
		logging.Warnf("%v", err)
	}

	currentServices = newServices(settings)
	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	// Make sure the user-provided file exists to avoid unwanted behavior.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// needsServices reports whether cmd operates on a deployment.
func needsServices(cmd *cobra.Command) bool {
	if cmd == cmd.Root() {
		return false
	}
	switch cmd.Name() {
	case "help", "version", "completion":
		return false
	}
	return true
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panelctl",
		Short: "panelctl installs and operates a proxy management panel.",
		Long: `panelctl produces and maintains a running deployment of a proxy
management panel on a single Linux server: containers, proxy core,
certificates, load balancer routing, firewall rules and scheduled
backups delivered through a messaging bot.

Running without a subcommand prints this help.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsServices(cmd) {
				return nil
			}
			return fail(setupServices(cmd))
		},
		// Unknown verbs land here and print the help listing.
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", i18n.T("cli.unknown_command", args[0]))
			}
			return cmd.Help()
		},
	}

	v, c, d := resolveBuildVersion(nil)
	cmd.Version = compositeVersion(v, c, d)

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("config", "", "settings file (default: /etc/panelctl/panelctl.yaml)")

	cmd.AddCommand(
		newUpCmd(),
		newDownCmd(),
		newRestartCmd(),
		newStatusCmd(),
		newLogsCmd(),
		newCLICmd(),
		newInstallCmd(),
		newUpdateCmd(),
		newUninstallCmd(),
		newInstallScriptCmd(),
		newBackupCmd(),
		newBackupServiceCmd(),
		newCoreUpdateCmd(),
		newSSLCertCmd(),
		newEditCmd(),
		newEditEnvCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func compositeVersion(v, c, d string) string {
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

// newVersionCmd prints build information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// If Main doesn't contain the version (some build paths), try to
		// find our module in the dependencies and use that version.
		if resolvedVersion == "dev" {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/toeirei/panelctl" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort show the ldflags commit to aid support.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
