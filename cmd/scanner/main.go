package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wsgraph/engine/internal/cli"
	"github.com/wsgraph/engine/internal/filesystem"
	"github.com/wsgraph/engine/pkg/logger"
)

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	log, err := logger.InitTo(os.Stderr, level, "console")
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewScanCommand(filesystem.NewOSFileSystem(), log))
	stop()
	logger.Sync()
	os.Exit(code)
}
