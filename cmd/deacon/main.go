// Package main provides the entry point for the deacon CLI.
package main

import (
	"os"

	"github.com/deacon-dev/deacon/internal/cli"
)

func main() {
	err := cli.Execute()
	os.Exit(cli.ExitCode(err))
}
