// Package main is the entry point for the hermes application.
package main

import (
	"os"

	"github.com/hermesradio/hermes/cmd/hermes/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
