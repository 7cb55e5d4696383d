package main

import (
	"os"

	"github.com/durablenotes/durablenotes/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
