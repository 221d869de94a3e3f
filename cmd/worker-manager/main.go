// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hiring-referrals-workers/internal/common/aws"
	"hiring-referrals-workers/internal/common/camunda"
	"hiring-referrals-workers/internal/common/config"
	"hiring-referrals-workers/internal/common/database"
	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/common/observability"
	"hiring-referrals-workers/internal/notify"

	// Matching Workers (2)
	rc "hiring-referrals-workers/internal/workers/matching/rank-candidates"
	sc "hiring-referrals-workers/internal/workers/matching/score-candidate"

	// Financial Workers (1)
	cc "hiring-referrals-workers/internal/workers/financial/calculate-commission"

	// Pipeline Workers (3)
	as "hiring-referrals-workers/internal/workers/pipeline/auto-screen"
	ps "hiring-referrals-workers/internal/workers/pipeline/pipeline-stats"
	us "hiring-referrals-workers/internal/workers/pipeline/update-status"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	tracing, err := observability.NewTracing("worker-manager", os.Getenv("JAEGER_COLLECTOR_URL"))
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}
	defer tracing.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client (camunda.Connect retries internally) ---
	zeebeClient, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Notification channels (optional, per config) ---
	var emailSender notify.EmailSender
	var smsSender notify.SMSSender
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = sesClient
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.DefaultSMSSenderID)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		smsSender = snsClient
	}
	dispatcher := notify.NewDispatcher(emailSender, smsSender, cfg.Notifications, log)

	manager := camunda.NewManager(zeebeClient, zapLog)

	// --- Register Workers ---

	// --- 1. Matching Workers (2) ---
	if config.IsWorkerEnabled(cfg, sc.TaskType) {
		handler, err := sc.NewHandler(sc.LoadConfig(cfg), pg.DB, redis.Client, log)
		if err != nil {
			zapLog.Fatal("failed to create score-candidate handler", zap.Error(err))
		}
		registerWorker(manager, cfg, sc.TaskType, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, rc.TaskType) {
		handler, err := rc.NewHandler(rc.LoadConfig(cfg), pg.DB, esClient, log)
		if err != nil {
			zapLog.Fatal("failed to create rank-candidates handler", zap.Error(err))
		}
		registerWorker(manager, cfg, rc.TaskType, handler.Handle)
	}

	// --- 2. Financial Workers (1) ---
	if config.IsWorkerEnabled(cfg, cc.TaskType) {
		handler := cc.NewHandler(cc.LoadConfig(cfg), pg.DB, redis.Client, log)
		registerWorker(manager, cfg, cc.TaskType, handler.Handle)
	}

	// --- 3. Pipeline Workers (3) ---
	if config.IsWorkerEnabled(cfg, as.TaskType) {
		handler, err := as.NewHandler(as.LoadConfig(cfg), pg.DB, log)
		if err != nil {
			zapLog.Fatal("failed to create auto-screen handler", zap.Error(err))
		}
		registerWorker(manager, cfg, as.TaskType, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, us.TaskType) {
		handler := us.NewHandler(us.LoadConfig(cfg), pg.DB, redis.Client, dispatcher, log)
		registerWorker(manager, cfg, us.TaskType, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, ps.TaskType) {
		handler := ps.NewHandler(ps.LoadConfig(cfg), pg.DB, log)
		registerWorker(manager, cfg, ps.TaskType, handler.Handle)
	}

	zapLog.Info("All workers registered successfully", zap.Int("count", manager.Count()))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camunda.HealthCheck(r.Context(), zeebeClient); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	manager.Close()
	zapLog.Info("Worker manager stopped gracefully")
}

func registerWorker(manager *camunda.Manager, cfg *config.Config, taskType string, handlerFunc func(worker.JobClient, entities.Job)) {
	wc := config.GetWorkerConfig(cfg, taskType)
	manager.Register(camunda.Registration{
		TaskType:      taskType,
		Handler:       handlerFunc,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
	})
}
