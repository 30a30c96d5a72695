// Command suspense runs, draws and lints the suspense state machine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/amp-labs/suspense/shutdown"
)

func main() {
	ctx, cancel := shutdown.SetupHandler(context.Background())

	err := newRootCmd().ExecuteContext(ctx)

	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
