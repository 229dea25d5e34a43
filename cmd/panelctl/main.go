// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for panelctl.
//
// Usage:
//
//	panelctl <command> [flags]
//
// See --help for the list of commands.
package main

import (
	"os"

	"github.com/toeirei/panelctl/ui/cli"
)

func main() {
	// Errors are printed by cli.Execute.
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
