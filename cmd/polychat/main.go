// Package main provides the entry point for the polychat CLI.
package main

import (
	"os"

	"github.com/polychat-ai/polychat/cmd/polychat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
