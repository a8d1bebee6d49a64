// cmd/astroscope-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"astroscope/internal/api"
	"astroscope/internal/common/camunda"
	"astroscope/internal/common/config"
	"astroscope/internal/common/database"
	"astroscope/internal/common/logger"
	"astroscope/internal/common/observability"
	"astroscope/internal/conversation"
	"astroscope/internal/generator"
	"astroscope/internal/lessonstore"
	"astroscope/internal/llis"

	sl "astroscope/internal/workers/ai-conversation/sanitize-lessons"
	sf "astroscope/internal/workers/ai-conversation/suggest-followups"
	sa "astroscope/internal/workers/ai-conversation/synthesize-answer"
	rl "astroscope/internal/workers/lessons/retrieve-lessons"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// retryWithBackoff is used for infrastructure connections at startup only.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting astroscope server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()
	readyChecks := map[string]api.Check{}

	// --- Postgres (corpus source only) ---
	var pg *database.PostgresClient
	if cfg.Pipeline.CorpusSource == config.CorpusPostgres {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		readyChecks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Local corpus ---
	store, err := openStore(ctx, cfg, pg)
	if err != nil {
		zapLog.Fatal("lesson corpus load failed", zap.Error(err))
	}
	zapLog.Info("Lesson corpus loaded",
		zap.String("source", cfg.Pipeline.CorpusSource),
		zap.Int("lessons", store.Len()),
	)

	// --- Redis (optional live-result cache) ---
	cache, closeCache := openCache(ctx, cfg.Database.Redis, readyChecks, zapLog)
	defer closeCache()

	// --- Live lesson search ---
	transport, err := database.NewLLISTransport(cfg.LLIS, nil)
	if err != nil {
		zapLog.Fatal("llis transport init failed", zap.Error(err))
	}
	liveSearch := llis.NewClient(cfg.LLIS, transport, log)

	// --- Generative provider ---
	gen := generator.NewOrUnavailable(ctx, cfg.GenAI, log)
	zapLog.Info("Generative provider selected", zap.String("provider", gen.Name()))

	// --- Pipeline stages ---
	retriever := rl.NewHandler(rl.LoadConfig(cfg), liveSearch, store, cache, log)
	sanitizer := sl.NewHandler(sl.LoadConfig(cfg), gen, log)
	synthesizer := sa.NewHandler(sa.LoadConfig(cfg), gen, log)
	followUps := sf.NewHandler(sf.LoadConfig(cfg), gen, log)

	manager := conversation.NewManager(&conversation.Pipeline{
		Retriever:         retriever,
		Sanitizer:         sanitizer,
		Synthesizer:       synthesizer,
		Lessons:           store,
		FollowUps:         followUps,
		MaxContextLessons: cfg.Pipeline.MaxContextLessons,
		Observability:     obs,
	}, log)

	// --- Job workers (optional) ---
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		readyChecks["zeebe"] = zeebe.HealthCheck

		handlers := map[string]camunda.JobHandler{
			rl.TaskType: retriever,
			sl.TaskType: sanitizer,
			sa.TaskType: synthesizer,
			sf.TaskType: followUps,
		}
		for taskType, handler := range handlers {
			wcfg := config.GetWorkerConfig(cfg, taskType)
			if !wcfg.Enabled {
				zapLog.Info("worker disabled", zap.String("taskType", taskType))
				continue
			}
			workers = append(workers, camunda.NewWorker(
				zeebe.GetClient(), taskType, wcfg.MaxJobsActive,
				config.GetDuration(wcfg.Timeout), handler, log,
			))
		}
		zapLog.Info("Job workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP API ---
	server := api.New(api.Options{
		Address:     cfg.Server.Address,
		Manager:     manager,
		Trending:    store,
		Categories:  lessonstore.TrendingCategories,
		ReadyChecks: readyChecks,
		Logger:      log,
	})

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("api server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping api server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("astroscope server stopped gracefully")
}

// openCache returns nil when Redis is not configured or does not answer a
// ping; only a reachable cache is registered as a readiness check.
func openCache(ctx context.Context, cfg config.RedisConfig, readyChecks map[string]api.Check, log *zap.Logger) (redis.Cmdable, func()) {
	rdb := database.NewRedis(cfg)
	if rdb == nil {
		return nil, func() {}
	}
	if err := rdb.Ping(ctx); err != nil {
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		_ = rdb.Close()
		return nil, func() {}
	}
	log.Info("Redis connected successfully")
	readyChecks["redis"] = rdb.Ping
	return rdb.Client, func() { _ = rdb.Close() }
}

func openStore(ctx context.Context, cfg *config.Config, pg *database.PostgresClient) (*lessonstore.Store, error) {
	if pg == nil {
		return lessonstore.Open(ctx, cfg.Pipeline, nil)
	}
	return lessonstore.Open(ctx, cfg.Pipeline, pg.DB)
}
