package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/taxdesk/internal/config"
	"github.com/geocoder89/taxdesk/internal/db"
	"github.com/geocoder89/taxdesk/internal/observability"
)

// migrate runs schema changes as a separate deploy step:
//
//	migrate up | down | status
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	switch cmd {
	case "up":
		err = db.Migrate(ctx, pool)
	case "down":
		err = db.Rollback(ctx, pool)
	case "status":
		err = db.Status(ctx, pool)
	default:
		log.Error("unknown command, want up, down or status", "command", cmd)
		pool.Close()
		os.Exit(2)
	}

	if err != nil {
		log.Error("migrate failed", "command", cmd, "err", err)
		pool.Close()
		os.Exit(1)
	}

	log.Info("migrate complete", "command", cmd)
}
