// Package main is the entry point for the cineshelfctl operator CLI.
package main

import (
	"os"

	"github.com/dalemusser/cineshelf/internal/app/cli"
)

func main() {
	os.Exit(cli.Execute())
}
