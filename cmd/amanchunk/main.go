// Package main provides the entry point for the amanchunk CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/amanchunk/cmd/amanchunk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
