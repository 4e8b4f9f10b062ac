package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/hijjiri/todo-api/internal/auth"
	"github.com/hijjiri/todo-api/internal/config"
	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/infrastructure/database"
	"github.com/hijjiri/todo-api/internal/infrastructure/memory"
	grpcadapter "github.com/hijjiri/todo-api/internal/interface/grpc"
	httpadapter "github.com/hijjiri/todo-api/internal/interface/http"
	"github.com/hijjiri/todo-api/internal/telemetry"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"
)

//----------------------
// ストア選択
//----------------------

func openRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain_todo.Repository, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Info("using in-memory store")
		return memory.NewTodoRepository(), func() {}, nil
	}

	db, err := database.Open(cfg.DB, logger)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(db); err != nil {
			logger.Warn("failed to close db", zap.Error(err))
		}
	}

	if err := database.PingWithRetry(ctx, db, logger, 20, 3*time.Second); err != nil {
		closeDB()
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		closeDB()
		return nil, nil, err
	}

	logDBTarget(logger, cfg.DB, db)
	return database.NewTodoRepository(db, logger), closeDB, nil
}

func logDBTarget(logger *zap.Logger, cfg config.DBConfig, db *gorm.DB) {
	fields := []zap.Field{zap.String("driver", db.Dialector.Name())}
	if cfg.Driver == database.DriverSQLite {
		fields = append(fields, zap.String("path", cfg.Path))
	} else {
		fields = append(fields,
			zap.String("host", cfg.Host),
			zap.String("port", cfg.Port),
			zap.String("db", cfg.Name),
		)
	}
	logger.Info("connected to database", fields...)
}

//----------------------
// main
//----------------------

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "todo-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---- Logger ----
	zcfg := zap.NewProductionConfig()
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// ---- Config 読み込み ----
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	if err := zcfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("invalid LOG_LEVEL, keep info", zap.String("raw", cfg.LogLevel))
	}
	logger.Info("loaded config",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("grpc_health_addr", cfg.GRPCHealthAddr),
		zap.String("store", cfg.Store),
		zap.String("otel_exporter", cfg.OTELExporter),
		zap.Bool("auth_enabled", cfg.AuthEnabled()),
		zap.Duration("request_timeout", cfg.RequestTimeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Tracing ----
	shutdownTracer, err := telemetry.NewTracerProvider(cfg.OTELExporter, os.Stdout, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metrics := telemetry.NewMetrics()

	// ---- Store / Usecase ----
	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeRepo()

	uc := todo_usecase.New(repo, logger)

	// ---- Auth（JWT）----
	var authz *auth.Authenticator
	if cfg.AuthEnabled() {
		authz = auth.NewAuthenticator(logger, cfg.AuthSecret)
	}

	// ---- HTTP API ----
	apiServer := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.NewRouter(uc, httpadapter.Options{
		Logger:          logger,
		Metrics:         metrics,
		Authenticator:   authz,
		RequestTimeout:  cfg.RequestTimeout,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
	}))

	// ---- metrics HTTP サーバ (/metrics) ----
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := httpadapter.NewServer(cfg.MetricsAddr, metricsMux)

	// ---- gRPC health & reflection ----
	grpcServer, healthSrv := grpcadapter.NewServer(logger, cfg.RequestTimeout)
	reporter := grpcadapter.NewHealthReporter(healthSrv, uc.Ping, 10*time.Second, logger)

	grpcLis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCHealthAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server is starting", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC health server is starting", zap.String("addr", cfg.GRPCHealthAddr))
		if err := grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		reporter.Run(gctx)
		return nil
	})

	// ---- Graceful shutdown ----
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// 3 つとも同じ deadline で並行に止める
		var (
			sg      errgroup.Group
			httpErr error
			metErr  error
		)
		sg.Go(func() error {
			if !grpcadapter.GracefulStop(sctx, grpcServer) {
				logger.Warn("gRPC graceful stop timed out, forced stop")
			}
			return nil
		})
		sg.Go(func() error {
			if err := apiServer.Shutdown(sctx); err != nil {
				httpErr = fmt.Errorf("http shutdown: %w", err)
			}
			return nil
		})
		sg.Go(func() error {
			if err := metricsServer.Shutdown(sctx); err != nil {
				metErr = fmt.Errorf("metrics shutdown: %w", err)
			}
			return nil
		})
		_ = sg.Wait()
		return errors.Join(httpErr, metErr)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
