package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/roceb/sonicrust/backend"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := backend.StartupApp()
	if err != nil {
		if errors.Is(err, backend.ErrNoServerConfigured) {
			fmt.Fprintln(os.Stderr, "No server configured. Edit the config file and fill in your server details, then start again.")
			os.Exit(1)
		}
		log.Fatalf("startup failed: %v", err)
	}

	app.MPRIS.OnQuit = func() error {
		stop()
		return nil
	}

	app.Run(ctx)
	app.Shutdown()
}
