package main

import (
	"os"

	"github.com/wonny/sectorfolio/cmd/sectorfolio/commands"
)

// main is the entry point for the sectorfolio CLI
// ⭐ single CLI entry point: go run ./cmd/sectorfolio [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
