package main

import (
	"os"

	"github.com/feeledger-dev/feeledger/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
