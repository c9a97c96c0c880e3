package main

import (
	"os"

	"github.com/thisisjab/sieve/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
