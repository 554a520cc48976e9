package main

import (
	"os"

	"github.com/GregMSThompson/utilization-pilot/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
