// Command irjit compiles, evaluates and caches expression DAG kernels.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/irjit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "irjit:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
