// Vbridge drives a terminal widget tree from a virtual-tree engine: a script
// of mutation batches, or an external process speaking JSON-RPC.
package main

import (
	"os"

	"src.vbridge.sh/pkg/prog"
)

func main() {
	os.Exit(prog.Run([3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args))
}
