// Package main is the entry point for the taxctl CLI.
package main

import (
	"os"

	"taxdesk/cmd/taxctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
