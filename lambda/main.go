// Package main provides a Lambda entrypoint equivalent to `linear-agent-app lambda`, for bootstrap builds.
package main

import (
	"os"

	"github.com/isometry/linear-agent-app/cmd"
)

func main() {
	root := cmd.New()
	root.SetArgs(append([]string{"lambda"}, os.Args[1:]...))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
