// Command extkit manages a sealed extension catalog on a key-value ledger.
package main

import (
	"context"
	"os"

	"github.com/roach88/extkit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
