// Package main is the entry point for the homebus daemon.
package main

import (
	"os"

	"github.com/dshills/homebus/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
