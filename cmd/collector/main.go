package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/trackx/app/collector"
	"github.com/canopy-network/trackx/pkg/utils"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := collector.Initialize(ctx)
	if err != nil {
		panic(err)
	}

	// Immediate pass before cron
	if utils.EnvBool("COLLECTOR_RUN_ON_START", true) {
		app.RunNow()
	}

	// Start cron scheduler
	app.StartCron()

	// Setup server
	app.SetupServer()

	// Start server
	app.Start(ctx)
}
