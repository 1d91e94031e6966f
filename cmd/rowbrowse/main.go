// Package main is the entry point for the rowbrowse CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/rowbrowse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
