// Package main is the entry point of the frame CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/frame/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
