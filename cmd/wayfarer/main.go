// File: cmd/wayfarer/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/wayfarer/cmd"
	"github.com/xkilldash9x/wayfarer/internal/observability"
)

func main() {
	// SIGINT and SIGTERM cancel the context; the agent finishes the current
	// step and reports a stopped result before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
