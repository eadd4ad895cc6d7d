package main

import (
	"os"

	"github.com/supportops/support-digest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
