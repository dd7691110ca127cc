// Package main is the entry point for the netzero CLI.
package main

import (
	"os"

	"github.com/zaidkom/net-zero/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
