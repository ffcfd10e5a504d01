package main

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/WowVeryLogin/deferred_engine/src/app"
	"github.com/WowVeryLogin/deferred_engine/src/config"
	"github.com/WowVeryLogin/deferred_engine/src/logger"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		logger.Get().Error("deferred engine failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		// Logging is not configured yet.
		logger.Set(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		return err
	}
	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.Set(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run()
}
