package main

import (
	"os"

	"github.com/relayroom/relayroom/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
