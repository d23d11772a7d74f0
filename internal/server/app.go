// Package server wires the SGICS backend together: configuration, logging,
// the database and its migrations, readiness checks, the REST API and the
// gRPC health service. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/auth"
	"github.com/sgics/sgics/internal/server/config"
	"github.com/sgics/sgics/internal/server/health"
	"github.com/sgics/sgics/internal/server/migrator"
	"github.com/sgics/sgics/internal/server/repositories/repomanager"
	"github.com/sgics/sgics/internal/server/rest"
	"github.com/sgics/sgics/internal/server/services"

	gs "github.com/sgics/sgics/internal/server/grpc"
)

// healthRefreshInterval is how often the gRPC health status is recomputed.
const healthRefreshInterval = 5 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	migrator    *migrator.Migrator
	userService *services.UserService
	readiness   *health.Registry
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// NewApp validates c and builds every component. Nothing listens yet.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(logOut, c.LogFormat, c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	us := services.NewUserService(db, rm, auth.BcryptHasher{}, c, logger)

	checks := []health.Checker{health.DBCheck(db)}
	if c.S3Bucket != "" {
		bucket, err := health.NewBucketCheck(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("object storage init error: %w", err)
		}
		checks = append(checks, bucket)
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		migrator:    migrator.New(db, rm, logger),
		userService: us,
		readiness:   health.NewRegistry(c.ReadinessTimeout, logger, checks...),
	}, nil
}

func (app *App) router() *gin.Engine {
	if app.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return rest.NewRouter(rest.Deps{
		Users:      app.userService,
		Readiness:  app.readiness,
		Migrations: app.migrator.Status,
		Logger:     app.logger,
	})
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.config.HTTPAddr, app.router(), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCHealthAddr, app.logger, app.readiness, healthRefreshInterval)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run applies migrations when configured to, then serves until SIGINT,
// SIGTERM or SIGQUIT. A migration failure aborts startup.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	if app.config.MigrateOnStart {
		if _, err := app.migrator.Apply(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCHealthAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return nil
}

// Main is the server entry point used by cmd/server.
func Main() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "error", err.Error())
		return 1
	}
	return 0
}
