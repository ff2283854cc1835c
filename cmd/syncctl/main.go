package main

import (
	"os"

	"github.com/fastygo/agentsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
