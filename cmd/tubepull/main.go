package main

import (
	"os"

	"github.com/tubepull/tubepull/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
