// Package main provides the entrypoint for linear-agent-app.
package main

import (
	"os"

	"github.com/isometry/linear-agent-app/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
