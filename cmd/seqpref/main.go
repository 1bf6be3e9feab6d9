// Command seqpref compiles sequence preference operators into CQL-equivalent
// plans and drives experiments over the streampref engine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/seqpref/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
