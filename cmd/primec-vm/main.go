// Command primec-vm executes a previously serialized bytecode module
// (written by `primec --emit=bytecode`) without re-running the front
// end, the way a deployed build ships only the IR artifact.
//
// Usage:
//
//	primec-vm <module.pbc> [argv...]
package main

import (
	"fmt"
	"os"

	"github.com/saruga/primec/internal/irserial"
	"github.com/saruga/primec/internal/vm"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: primec-vm <module.pbc> [argv...]")
		return vm.ExitHostErr
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading module: %v\n", err)
		return vm.ExitHostErr
	}

	module, err := irserial.Deserialize(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: deserializing module: %v\n", err)
		return vm.ExitHostErr
	}

	m := vm.New(module)
	_, err = m.Execute(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return vm.ExitCode(err)
	}
	return vm.ExitOK
}
