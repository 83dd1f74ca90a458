package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/client"
	"github.com/wsgraph/engine/internal/filesystem"
	"github.com/wsgraph/engine/internal/queue/tasks"
	"github.com/wsgraph/engine/internal/scanner"
	"github.com/wsgraph/engine/pkg/config"
	"github.com/wsgraph/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues:      map[string]int{"default": 1},
	})

	opts := []client.Option{client.WithLogger(log)}
	if cfg.IngestJWTSecret != "" {
		token, err := client.ServiceToken([]byte(cfg.IngestJWTSecret), "wsgraph-worker", time.Now())
		if err != nil {
			log.Fatal("failed to mint service token", zap.Error(err))
		}
		opts = append(opts, client.WithToken(token))
	}

	sc := scanner.New(filesystem.NewOSFileSystem(), scanner.WithLogger(log), scanner.WithGitIgnore(true))
	handler := tasks.NewScanTaskHandler(sc, client.New(cfg.IngestURL, opts...))

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeWorkspaceScan, handler.HandleWorkspaceScan)

	var scheduler *asynq.Scheduler
	if cfg.ScheduledScansEnabled() {
		task, err := tasks.NewWorkspaceScanTask(tasks.ScanPayload{
			WorkspaceID:   cfg.ScanWorkspaceID,
			WorkspaceRoot: cfg.ScanWorkspaceRoot,
		})
		if err != nil {
			log.Fatal("failed to build scan task", zap.Error(err))
		}
		scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
		entryID, err := scheduler.Register(cfg.ScanCron, task)
		if err != nil {
			log.Fatal("failed to register scheduled scan", zap.String("cron", cfg.ScanCron), zap.Error(err))
		}
		if err := scheduler.Start(); err != nil {
			log.Fatal("scheduler failed to start", zap.Error(err))
		}
		log.Info("scheduled scans registered",
			zap.String("entry_id", entryID),
			zap.String("cron", cfg.ScanCron),
			zap.String("workspace_id", cfg.ScanWorkspaceID))
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	if scheduler != nil {
		scheduler.Shutdown()
	}
	// Lets in-flight tasks finish.
	srv.Shutdown()
}
