package main

import (
	"os"

	"github.com/scormkit/scormkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
