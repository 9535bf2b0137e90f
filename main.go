package main

import (
	"os"

	"github.com/aicat-dev/aicat/cmd"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := cmd.GetRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
