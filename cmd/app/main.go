package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"fulfillment/cmd"
	"fulfillment/internal/pkg/errs"

	"github.com/labstack/gommon/log"
)

func main() {
	configs, err := cmd.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := cmd.NewLogger(configs, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cmd.NewCompositionRoot(ctx, configs, logger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err = app.Run(ctx); err != nil {
		var rejected *errs.HandshakeRejectedError
		if errors.As(err, &rejected) {
			log.Fatalf("World rejected the connection: %s", rejected.Result)
		}
		log.Fatalf("Coordinator stopped: %v", err)
	}
	logger.Info("Coordinator stopped")
}
