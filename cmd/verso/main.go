package main

import (
	"os"

	"github.com/taylen/verso/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
