// Command graphctl is the CLI front end for the graph-capture engine:
// capture, instantiate, execute, and inspect subcommands drive the
// engine against an in-memory reference command-list implementation.
package main

import (
	"github.com/zecapture/graph/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
