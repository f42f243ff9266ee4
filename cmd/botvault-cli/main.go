// Package main provides the entry point for botvault-cli.
//
// botvault-cli inspects and edits a single account database offline. Stop
// the agent that owns the file before changing it.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/botvault/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
