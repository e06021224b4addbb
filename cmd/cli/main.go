// Package main is the entry point for explorerctl.
// explorerctl publishes explorer programs and inspects their views and refresh jobs.
package main

import (
	"os"

	"github.com/owid/owid-grapher-sub039/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
