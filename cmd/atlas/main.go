// Command atlas is the CLI front end for the persistent context engine:
// ingest, search, timeline, consolidate, and vacuum/collection
// maintenance subcommands wired over the engine packages.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
