package main

import (
	"os"

	"github.com/bkoehler/netverdict/cmd/netverdict/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
