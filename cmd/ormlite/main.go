// Package main is the entry point of the ormlite CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/ormlite/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
