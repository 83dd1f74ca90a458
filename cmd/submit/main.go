package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wsgraph/engine/internal/cli"
	"github.com/wsgraph/engine/internal/filesystem"
	"github.com/wsgraph/engine/pkg/logger"
)

func main() {
	// Load .env if present (non-fatal)
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	log, err := logger.InitTo(os.Stderr, level, "console")
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewSubmitCommand(filesystem.NewOSFileSystem(), os.Getenv, log))
	stop()
	logger.Sync()
	os.Exit(code)
}
