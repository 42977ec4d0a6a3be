// Package main provides the entry point for the matching API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alphacv/matchcore/internal/embedding"
	"github.com/alphacv/matchcore/internal/httpapi"
	"github.com/alphacv/matchcore/internal/ingest"
	"github.com/alphacv/matchcore/internal/match"
	"github.com/alphacv/matchcore/internal/metrics"
	"github.com/alphacv/matchcore/internal/migrations"
	"github.com/alphacv/matchcore/internal/queue"
	"github.com/alphacv/matchcore/internal/ratelimit"
	"github.com/alphacv/matchcore/internal/vectorstore"
	"github.com/redis/go-redis/v9"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		apiPort  = flag.Int("api-port", 8081, "matching API port")
		opsPort  = flag.Int("ops-port", 8080, "health/metrics port")
		logLevel  = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat = flag.String("log-format", "json", "log format (json, console)")
		logFile   = flag.String("log-file", "", "if set, also write logs to this rotated file")

		minWorkers = flag.Int("min-workers", queue.DefaultConfig().MinWorkers, "minimum queue workers")
		maxWorkers = flag.Int("max-workers", queue.DefaultConfig().MaxWorkers, "maximum queue workers")

		pgDSN = flag.String("postgres-dsn", "", "PostgreSQL DSN; empty uses the in-memory backend")

		redisAddr = flag.String("redis-addr", "", "Redis address for distributed rate-limit windows; empty uses in-memory windows")

		rateLimitConfigFile = flag.String("rate-limit-config", "", "optional YAML file overlaying per-endpoint-class rate limit profiles")

		showVersion = flag.Bool("version", false, "show version information")

		gracefulTimeout = flag.Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("matchapi %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	logger, err := initLogger(*logLevel, *logFormat, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting matching api",
		zap.String("version", Version),
		zap.Int("api_port", *apiPort),
		zap.Int("ops_port", *opsPort),
	)

	m := metrics.NewNoOpMetrics()

	embedEngine, err := embedding.New(embedding.DefaultConfig())
	if err != nil {
		logger.Fatal("failed to initialize embedding engine", zap.Error(err))
	}

	store, err := newVectorStore(*pgDSN, m)
	if err != nil {
		logger.Fatal("failed to initialize vector store", zap.Error(err))
	}

	matcher := match.NewEngine(m)

	rlCfg := ratelimit.LoadConfigFromEnv()
	if *redisAddr != "" {
		rlCfg.Redis.Addr = *redisAddr
	}
	if *rateLimitConfigFile != "" {
		rlCfg, err = ratelimit.LoadConfigFromFile(*rateLimitConfigFile, rlCfg)
		if err != nil {
			logger.Fatal("failed to load rate limit config", zap.Error(err))
		}
	}

	var windowStore ratelimit.WindowStore
	if rlCfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: rlCfg.Redis.Addr, Password: rlCfg.Redis.Password, DB: rlCfg.Redis.DB})
		windowStore = ratelimit.NewRedisWindowStore(rdb, rlCfg.Redis.KeyPrefix)
		logger.Info("rate limiter using redis-backed sliding window", zap.String("addr", rlCfg.Redis.Addr))
	} else {
		windowStore = ratelimit.NewMemoryWindowStore()
	}

	limiter := ratelimit.NewController(rlCfg, windowStore, m, logger)
	defer limiter.Close()

	if *rateLimitConfigFile != "" {
		watcher, err := ratelimit.WatchConfigFile(*rateLimitConfigFile, rlCfg, logger, limiter.UpdateConfig)
		if err != nil {
			logger.Warn("rate limit config hot-reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	jd := ingest.NewInMemoryJDLookup()
	pipeline := ingest.New(ingest.DefaultConfig(), ingest.NoOpParser{}, ingest.NoOpStandardizer{}, embedEngine, store, jd, m, logger)

	queueCfg := queue.DefaultConfig()
	queueCfg.MinWorkers = *minWorkers
	queueCfg.MaxWorkers = *maxWorkers

	jobQueue := queue.New(queueCfg, pipeline.Process, nil, m, logger)

	health := httpapi.NewHealthHandler()

	apiServer := httpapi.New(httpapi.Config{
		Queue:   jobQueue,
		Matcher: matcher,
		Store:   store,
		Limiter: limiter,
		Health:  health,
		Logger:  logger,
		Addr:    fmt.Sprintf(":%d", *apiPort),
	})
	opsServer := httpapi.NewOpsServer(fmt.Sprintf(":%d", *opsPort), health, m, logger)

	errChan := make(chan error, 2)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		errChan <- apiServer.Start()
	}()
	go func() {
		errChan <- opsServer.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))

		health.SetReady(false)
		logger.Info("marked not ready, draining queue")
		_ = jobQueue.Control("drain")

		ctx, cancel := context.WithTimeout(context.Background(), *gracefulTimeout)
		defer cancel()

		if err := apiServer.Shutdown(ctx); err != nil {
			logger.Warn("api server shutdown error", zap.Error(err))
		}
		if err := opsServer.Shutdown(ctx); err != nil {
			logger.Warn("ops server shutdown error", zap.Error(err))
		}
		if err := jobQueue.Shutdown(ctx); err != nil {
			logger.Warn("queue shutdown error", zap.Error(err))
		}
	}

	logger.Info("matching api stopped")
}

func newVectorStore(pgDSN string, m metrics.Metrics) (*vectorstore.Store, error) {
	if pgDSN == "" {
		return vectorstore.NewStore(vectorstore.StoreConfig{
			Backend: vectorstore.NewInMemoryBackend(),
			Metrics: m,
		})
	}

	db, err := sql.Open("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	runner, err := migrations.NewRunner(db)
	if err != nil {
		return nil, fmt.Errorf("create migration runner: %w", err)
	}
	if err := runner.Up(); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	backend := vectorstore.NewCachingBackend(vectorstore.NewPostgresBackend(db), 50000, 5*time.Minute)
	return vectorstore.NewStore(vectorstore.StoreConfig{Backend: backend, Metrics: m})
}

// initLogger mirrors the teacher's initLogger, additionally wiring an
// optional rotated file sink via lumberjack when log-file is set.
func initLogger(level, format, logFile string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapLevel),
	}
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), zapLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
