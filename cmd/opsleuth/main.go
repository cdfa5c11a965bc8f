package main

import (
	"os"

	"github.com/opsleuth/opsleuth/cmd/opsleuth/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
