// Command affinityd runs the affinity engine's HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/duskward/affinity/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
