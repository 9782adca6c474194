package main

import (
	"os"

	"github.com/MEKXH/funbot/cmd/funbot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
