// Package server wires the session core together: database and migrations,
// token issuer, session service, sweeper, rate limiter, audit trail,
// metrics endpoint and the gRPC transport.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/audit"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/ratelimit"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/authcore/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	dispatcher *audit.Dispatcher
	metrics    *metrics.Metrics
	sessions   *services.SessionService
	sweeper    *services.Sweeper
}

// NewApp validates c, connects to Postgres, applies migrations and builds
// every component. Misconfiguration fails here, before anything listens.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(auth.Config{
		Secret:     []byte(c.SecretKey),
		Issuer:     c.Issuer,
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
	})
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{
		config:  c,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	sink, err := buildAuditSink(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.dispatcher = audit.NewDispatcher(sink, c.AuditBufferSize)
	app.metrics.RegisterAuditDropped(func() float64 { return float64(app.dispatcher.Dropped()) })

	runner := dbx.NewSQLRunner(db, nil)
	opts := []services.Option{
		services.WithAuditor(app.dispatcher),
		services.WithMetrics(app.metrics),
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		limiter := ratelimit.NewRedisLimiter(app.redis, ratelimit.Config{
			Limit:  c.RefreshRateLimit,
			Window: c.RefreshRateWindow,
		}, logger)
		opts = append(opts, services.WithLimiter(limiter))
	}

	app.sessions = services.NewSessionService(runner, rm, tokens, logger, opts...)
	app.sweeper = services.NewSweeper(runner, rm, c.SweepInterval, app.metrics, logger)

	return app, nil
}

// buildAuditSink always logs events and also archives them to S3 when a
// bucket is configured.
func buildAuditSink(ctx context.Context, c *config.Config, logger logging.Logger) (audit.Sink, error) {
	sinks := audit.MultiSink{audit.NewLogSink(logger)}

	if c.S3Bucket != "" {
		client, err := audit.NewS3Client(ctx, audit.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("audit s3: %w", err)
		}
		sinks = append(sinks, audit.NewS3Sink(client, c.S3Bucket, logger))
	}

	return sinks, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.config.InternalAPIKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// serveMetrics runs the /metrics endpoint until ctx is done.
func serveMetrics(ctx context.Context, addr string, h http.Handler, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Starting metrics server", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveMetrics(ctx, app.config.MetricsAddr, app.metrics.Handler(), app.logger); err != nil {
				app.logger.Error(ctx, "metrics server", "error", err)
			}
		}()
	}

	wg.Wait()
	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	app.dispatcher.Close()
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
