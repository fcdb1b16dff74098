package main

import (
	"os"

	"github.com/taskdeck/taskdeck/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
