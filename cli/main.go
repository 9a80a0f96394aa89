// Command evml runs evml scripts and answers editor queries about them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		FormatError(rootCmd.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}
