// Package main provides a service entrypoint equivalent to `linear-agent-app service`.
package main

import (
	"os"

	"github.com/isometry/linear-agent-app/cmd"
)

func main() {
	root := cmd.New()
	root.SetArgs(append([]string{"service"}, os.Args[1:]...))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
