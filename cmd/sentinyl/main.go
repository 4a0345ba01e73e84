package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OP-88/Sentinyl/internal/app"
	"github.com/OP-88/Sentinyl/internal/config"
)

func main() {
	mode := flag.String("mode", "", "run mode: api or worker (overrides SENTINYL_MODE)")
	queue := flag.String("queue", "", "worker queue: typosquat, leak, or guard (overrides SENTINYL_WORKER_QUEUE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override env vars.
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *queue != "" {
		cfg.WorkerQueue = *queue
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
