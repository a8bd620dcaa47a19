// Command kmctl inspects survival curves, colour schemes and persona keys offline.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kmctl:", err)
		os.Exit(1)
	}
}
