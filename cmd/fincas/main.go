package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/llauna/administracionFincas-sub000/cmd/fincas/cli"
	"github.com/llauna/administracionFincas-sub000/internal/app"
	"github.com/llauna/administracionFincas-sub000/internal/distribution"
	"github.com/llauna/administracionFincas-sub000/internal/invoices"
	"github.com/llauna/administracionFincas-sub000/internal/observability"
	"github.com/llauna/administracionFincas-sub000/internal/platform/cache"
	"github.com/llauna/administracionFincas-sub000/internal/platform/db"
	"github.com/llauna/administracionFincas-sub000/internal/properties"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
	"github.com/llauna/administracionFincas-sub000/internal/treasury"
	"github.com/llauna/administracionFincas-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	vatRate, err := cfg.VATRate()
	if err != nil {
		logger.Error("vat rate", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	summaryCache := cache.NewCache(redisClient, "fincas:treasury:summary", cfg.SummaryCacheTTL)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	propertiesService := properties.NewService(properties.NewRepository(dbpool))
	invoicesService := invoices.NewService(invoices.NewRepository(dbpool), auditLogger, vatRate, logger)
	distributionService := distribution.NewService(distribution.NewRepository(dbpool), auditLogger, metrics, logger)
	treasuryService := treasury.NewService(treasury.NewRepository(dbpool), summaryCache, auditLogger, metrics, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Metrics:             metrics,
		PropertiesHandler:   properties.NewHandler(logger, propertiesService),
		InvoicesHandler:     invoices.NewHandler(logger, invoicesService),
		DistributionHandler: distribution.NewHandler(logger, distributionService),
		TreasuryHandler:     treasury.NewHandler(logger, treasuryService, jobClient),
		JobHandler:          jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCommand handles `fincas jobs trigger <task>` and `fincas jobs stats`.
func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	if len(args) == 0 {
		return fmt.Errorf("usage: fincas jobs trigger <%s|%s> | stats", jobs.TaskTreasuryIntegrity, jobs.TaskIdempotencyCleanup)
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return fmt.Errorf("jobs trigger: task name required")
		}
		info, err := jobsCLI.Trigger(ctx, args[1], cfg.IdempotencyRetentionHrs)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s (%s)\n", info.Type, info.ID)
	case "stats":
		queues, err := jobsCLI.InspectQueues(ctx)
		if err != nil {
			return err
		}
		for _, stats := range queues {
			fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		}
	default:
		return fmt.Errorf("jobs: unknown command %q", args[0])
	}
	return nil
}
