package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(checkinerrors.GetExitCode(err))
}
