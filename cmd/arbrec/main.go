package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/devlongs/arb-recorder/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}

	// The recorder already logged why the insert failed.
	if !errors.Is(err, cli.ErrRecordFailed) {
		log.Error().Err(err).Msg("arbrec failed")
	}
	stop()
	os.Exit(1)
}
