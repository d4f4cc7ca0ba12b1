package main

import (
	"os"

	"github.com/wonny/snapshot-engine/cmd/snapshot/commands"
)

// main is the entry point for the snapshot-engine CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/snapshot [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
