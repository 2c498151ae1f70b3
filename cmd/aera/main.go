// Command aera runs the local-first emergency response data engine: an HTTP
// node over the persisted document, plus maintenance subcommands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
