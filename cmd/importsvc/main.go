package main

import (
	"os"

	"github.com/avvvet/manavault/internal/importsvc/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
