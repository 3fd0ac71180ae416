// Package main is the entry point for the miglee admin CLI binary.
package main

import (
	"os"

	"github.com/admbtski/miglee-sub001/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
