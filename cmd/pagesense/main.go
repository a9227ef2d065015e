// Package main is the entry point for the pagesense CLI.
package main

import (
	"os"

	"github.com/pranavnbapat/pagesense/cmd/pagesense/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
