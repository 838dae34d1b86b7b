package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initializeApp()
	if err != nil {
		log.Fatalf("failed to wire application: %v", err)
	}

	// Run returns after the HTTP server has drained, so clients are idle here.
	err = app.Run(ctx)
	cleanup()
	if err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}
