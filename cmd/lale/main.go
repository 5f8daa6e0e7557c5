// Package main implements the lale CLI. It wires the analyze,
// platforms, init and version subcommands and maps the analysis
// verdict onto the documented process exit codes.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vertexclique/lale/cmd/lale/commands"
	"github.com/vertexclique/lale/pkg/report"
)

func main() {
	commands.RootCmd.Version = report.Version
	commands.RootCmd.SetVersionTemplate(`lale version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Msg != "" {
				fmt.Fprintln(os.Stderr, exitErr.Msg)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
