// Command canvasctl manages stored NOC canvases from the terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		bad.Fprintln(os.Stderr, "canvasctl: "+err.Error())
		os.Exit(1)
	}
}
