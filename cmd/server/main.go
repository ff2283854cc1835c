package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/agentsync/api/handler"
	"github.com/fastygo/agentsync/internal/config"
	"github.com/fastygo/agentsync/internal/infrastructure/buffer"
	"github.com/fastygo/agentsync/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/agentsync/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/agentsync/internal/infrastructure/redis"
	"github.com/fastygo/agentsync/internal/middleware"
	"github.com/fastygo/agentsync/internal/router"
	"github.com/fastygo/agentsync/internal/services"
	"github.com/fastygo/agentsync/internal/services/lifecycle"
	"github.com/fastygo/agentsync/pkg/httpcontext"
	"github.com/fastygo/agentsync/pkg/logger"
	"github.com/fastygo/agentsync/repository"
	"github.com/fastygo/agentsync/repository/memory"
	"github.com/fastygo/agentsync/repository/postgres"
	redisRepo "github.com/fastygo/agentsync/repository/redis"
	"github.com/fastygo/agentsync/usecase"
	"github.com/fastygo/agentsync/usecase/agentsync"
	"github.com/fastygo/agentsync/usecase/reconcile"
	supplyUC "github.com/fastygo/agentsync/usecase/supply"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Context(context.Background())
	defer cancel()

	var (
		pool *pgxpool.Pool
		uow  repository.UnitOfWork
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err = pgInfra.NewPool(appCtx, cfg.Database, cfg.AppName, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pgInfra.Close(pool, zapLogger)
			return nil
		})
		uow = postgres.NewUnitOfWork(pool, zapLogger)
	default:
		zapLogger.Warn("using in-memory storage, data is lost on restart")
		uow = memory.New()
	}

	var (
		redisClient *goRedis.Client
		locker      repository.PartnerLocker
	)
	if cfg.Lock.UseRedis {
		redisClient, err = redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.RegisterCloser("redis", redisClient)
		locker = redisRepo.NewPartnerLocker(redisClient, cfg.Lock.TTL, cfg.Lock.RetryInterval, zapLogger)
	} else {
		locker = memory.NewLocker()
	}

	var bufferStore *buffer.Store
	if cfg.Sync.BufferOnFailure {
		bufferStore, err = buffer.Open(cfg.Buffer.Path, "bpartner_sync")
		if err != nil {
			zapLogger.Fatal("failed to open buffer store", zap.Error(err))
		}
		manager.RegisterCloser("buffer", bufferStore)
	}

	mon := monitor.New(monitor.Probes{
		Postgres: monitor.PostgresProbe(pool),
		Redis:    monitor.RedisProbe(redisClient),
	}, bufferStore, 10*time.Second, zapLogger)

	var opBuffer usecase.OperationBuffer
	dispatcher := usecase.NewDispatcher()
	if bufferStore != nil {
		bufferProcessor := services.NewBufferProcessor(
			bufferStore,
			mon,
			dispatcher,
			zapLogger,
			services.ProcessorConfig{
				Interval:   cfg.Buffer.SyncInterval,
				BatchSize:  50,
				MaxRetries: cfg.Buffer.MaxRetry,
				Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
				MaxSize:    cfg.Buffer.MaxSize,
			},
		)
		bufferProcessor.Start()
		manager.Register("buffer_processor", func(ctx context.Context) error {
			bufferProcessor.Stop(ctx)
			return nil
		})
		opBuffer = services.NewBufferBridge(bufferProcessor)
		mon.OnChange(func(online bool) {
			if online {
				bufferProcessor.DrainAsync()
			}
		})
	}

	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	syncUseCase := agentsync.New(uow, locker, reconcile.New(zapLogger), opBuffer, zapLogger)
	syncUseCase.RegisterCommands(dispatcher)
	zapLogger.Debug("replayable commands registered", zap.Strings("commands", dispatcher.Commands()))
	supplyUseCase := supplyUC.New(uow, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Sync:     apiHandler.NewSyncHandler(syncUseCase, ctxAdapter, zapLogger),
		Supply:   apiHandler.NewSupplyHandler(supplyUseCase, ctxAdapter, zapLogger),
		Contract: apiHandler.NewContractHandler(syncUseCase, supplyUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, cfg.Storage.Driver, ctxAdapter, zapLogger),
	}

	if cfg.JWT.Secret == "" {
		zapLogger.Warn("JWT_SECRET not set, agent endpoints are unauthenticated")
	}
	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		MaxRequestBodySize: cfg.HTTP.MaxBodySize,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
