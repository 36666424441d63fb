package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"recording-pipeline/internal/config"
	"recording-pipeline/internal/jobs"
	"recording-pipeline/internal/pbx"
	"recording-pipeline/internal/recording"
	"recording-pipeline/pkg/logger"
	"recording-pipeline/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.Ingestion.Enabled && cfg.PBX.BaseURL == "" {
		log.Error("PBX_BASE_URL is required when ingestion is enabled")
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	accounts := &pbx.PostgresRepo{DB: db}
	queue := jobs.NewRedisQueue(rdb, cfg.Ingestion.Queue)
	lock := jobs.NewRedisLock(rdb, cfg.Ingestion.Queue+":dispatch_lock", cfg.Ingestion.LockTTL)

	dispatcher := jobs.NewDispatcher(
		jobs.DispatcherConfig{Enabled: cfg.Ingestion.Enabled},
		accounts, queue, lock, log,
	)

	worker := jobs.NewWorker(
		queue,
		accounts,
		pbx.NewHTTPClient(cfg.PBX.BaseURL, cfg.PBX.APIKey),
		recording.NewService(&recording.PostgresRepo{DB: db}),
		log,
	)

	// Dispatch on a fixed schedule; one dispatcher per interval across all
	// worker processes, enforced by the redis lock.
	sched := cron.New()
	_, err = sched.AddFunc(fmt.Sprintf("@every %s", cfg.Ingestion.Interval), func() {
		n, err := dispatcher.RunOnce(rootCtx)
		if err != nil {
			log.Error("dispatch run failed", "err", err)
			return
		}
		log.Info("dispatch run finished", "jobs", n)
	})
	if err != nil {
		log.Error("cron schedule failed", "err", err)
		os.Exit(1)
	}
	sched.Start()

	log.Info("worker started",
		"env", cfg.App.Env,
		"queue", cfg.Ingestion.Queue,
		"interval", cfg.Ingestion.Interval.String(),
		"concurrency", cfg.Ingestion.Concurrency,
		"dispatch_enabled", cfg.Ingestion.Enabled,
	)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Ingestion.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(rootCtx)
		}()
	}

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	// Wait for in-flight cron jobs, then for the consume loops to drain.
	<-sched.Stop().Done()
	wg.Wait()
}
