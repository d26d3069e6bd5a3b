package main

import (
	"os"

	"github.com/kkookk/kkookk/cmd/kkookk/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
