// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"leadflow-workers/internal/bootstrap"
	awsclient "leadflow-workers/internal/common/aws"
	"leadflow-workers/internal/common/camunda"
	"leadflow-workers/internal/common/config"
	"leadflow-workers/internal/common/database"
	"leadflow-workers/internal/common/errors"
	"leadflow-workers/internal/common/events"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/observability"
	"leadflow-workers/internal/common/validation"
	"leadflow-workers/pkg/registry"

	mlc "leadflow-workers/internal/workers/distribution/mark-lead-converted"
	rpa "leadflow-workers/internal/workers/distribution/record-phone-assignment"
	sfp "leadflow-workers/internal/workers/distribution/select-franchise-phone"
	nop "leadflow-workers/internal/workers/notification/notify-operators"
	fd "leadflow-workers/internal/workers/reporting/franchise-distribution"
	ras "leadflow-workers/internal/workers/rollup/rollup-all-servers"
	rdr "leadflow-workers/internal/workers/rollup/run-daily-rollup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("timezone", cfg.App.Timezone),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebeClient zbc.Client
	err = bootstrap.Retry(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = bootstrap.Retry(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.RunMigrations {
		if err := database.RunMigrations(pg.GetDB(), cfg.Database.Postgres.MigrationsPath); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations applied", zap.String("path", cfg.Database.Postgres.MigrationsPath))
	}

	// --- Redis (goal and report cache; optional) ---
	var rdb *redis.Client
	if cfg.Database.Redis.Address != "" {
		rc, _ := database.NewRedis(cfg.Database.Redis)
		if err := rc.Ping(ctx); err != nil {
			zapLog.Warn("redis unavailable, caching disabled", zap.Error(err))
			_ = rc.Close()
		} else {
			rdb = rc.GetClient()
			defer rc.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Elasticsearch (daily record index; optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = bootstrap.Retry(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, record indexing disabled", zap.Error(err))
			esClient = nil
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	engine, err := bootstrap.NewEngine(cfg, pg.GetDB(), rdb, esClient, log)
	if err != nil {
		zapLog.Fatal("engine init failed", zap.Error(err))
	}
	if engine.Records != nil {
		if err := engine.Records.EnsureIndex(ctx); err != nil {
			zapLog.Warn("could not ensure daily record index", zap.Error(err))
		}
	}

	// --- Assignment events ---
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
		zapLog.Info("Kafka publisher ready", zap.String("topic", cfg.Events.Kafka.Topic))
	}
	defer publisher.Close()

	// --- Notification channels ---
	var (
		sesClient awsclient.SESAPI
		snsClient awsclient.SNSAPI
	)
	if cfg.Notifications.Email.Enabled {
		c, err := awsclient.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SES client init failed", zap.Error(err))
		}
		sesClient = c
	}
	if cfg.Notifications.SMS.Enabled {
		c, err := awsclient.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SNS client init failed", zap.Error(err))
		}
		snsClient = c
	}

	// --- Input validation ---
	var validator *validation.Validator
	if cfg.Registry.ValidateInput {
		reg, err := registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Fatal("activity registry load failed", zap.Error(err))
		}
		validator, err = validation.NewValidator(reg)
		if err != nil {
			zapLog.Fatal("activity registry schemas invalid", zap.Error(err))
		}
	}

	errorHandler := errors.NewErrorHandler(log)
	opts := camunda.Options{
		Observability: obs,
		Validator:     validator,
		ErrorHandler:  errorHandler,
		Logger:        log,
	}

	// --- Workers ---
	handlers := map[string]camunda.JobHandler{
		sfp.TaskType: sfp.NewHandler(sfp.LoadConfig(cfg), engine.Selector, publisher, engine.Calendar, errorHandler, log),
		rpa.TaskType: rpa.NewHandler(rpa.LoadConfig(cfg), engine.Selector, publisher, engine.Calendar, errorHandler, log),
		mlc.TaskType: mlc.NewHandler(mlc.LoadConfig(cfg), engine.Selector, errorHandler, log),
		rdr.TaskType: rdr.NewHandler(rdr.LoadConfig(cfg), engine.Rollup, engine.Calendar, errorHandler, log),
		ras.TaskType: ras.NewHandler(ras.LoadConfig(cfg), engine.Rollup, engine.Calendar, errorHandler, log),
		fd.TaskType:  fd.NewHandler(fd.LoadConfig(cfg), engine.Store, engine.Calendar, errorHandler, log),
	}

	nopCfg := nop.LoadConfig(cfg)
	if err := nopCfg.Validate(); err != nil {
		zapLog.Fatal("notify-operators config invalid", zap.Error(err))
	}
	handlers[nop.TaskType] = nop.NewHandler(nopCfg, sesClient, snsClient, errorHandler, log)

	var jobWorkers []worker.JobWorker
	for taskType, h := range handlers {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		jobWorkers = append(jobWorkers, camunda.Open(zeebeClient, taskType, wcfg, h, opts))
		zapLog.Info("worker started",
			zap.String("taskType", taskType),
			zap.Int("maxJobsActive", wcfg.MaxJobsActive),
			zap.Int("timeout_ms", wcfg.Timeout),
		)
	}
	zapLog.Info("Workers registered", zap.Int("count", len(jobWorkers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		rctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pg.Ping(rctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	srv := &http.Server{Addr: cfg.Server.Address, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range jobWorkers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
