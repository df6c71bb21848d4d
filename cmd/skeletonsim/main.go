package main

import (
	"os"

	"github.com/gekko3d/articulated/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
