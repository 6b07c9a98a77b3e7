package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaeho-dev/marketscout/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if ctx.Err() != nil {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
