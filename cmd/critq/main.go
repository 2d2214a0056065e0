package main

import (
	"os"

	"github.com/theplant/criteria/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
