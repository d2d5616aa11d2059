// Package server wires the socialnet backend together: configuration,
// Postgres with migrations, the login throttle, and the HTTP and gRPC
// servers, and shuts them down on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/httpapi"
	"github.com/dmitrijs2005/socialnet/internal/server/metrics"
	"github.com/dmitrijs2005/socialnet/internal/server/ratelimit"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialnet/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	gs "github.com/dmitrijs2005/socialnet/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	registry *prometheus.Registry

	sessionService *services.SessionService
	userService    *services.UserService
	uploadService  *services.UploadService
	postService    *services.PostService
	commentService *services.CommentService
	searchService  *services.SearchService
	limiter        ratelimit.Limiter
	metrics        *metrics.Metrics
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.DevMode)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mx := metrics.New(registry)

	hasher := services.BcryptHasher{Cost: bcrypt.DefaultCost}

	app := &App{
		config:         c,
		logger:         logger,
		db:             db,
		registry:       registry,
		metrics:        mx,
		sessionService: services.NewSessionService(db, rm, hasher, c, logger, mx),
		userService:    services.NewUserService(db, rm, hasher, logger),
		uploadService:  services.NewUploadService(db, rm, c, logger),
		postService:    services.NewPostService(db, rm, logger),
		commentService: services.NewCommentService(db, rm, logger),
		searchService:  services.NewSearchService(db, rm),
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.limiter = ratelimit.NewRedisLimiter(app.redis, c.LoginRateLimit, c.LoginRateWindow, ratelimit.DefaultRedisPrefix)
	} else {
		app.limiter = ratelimit.NewMemoryLimiter(c.LoginRateLimit, c.LoginRateWindow)
	}

	return app, nil
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
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.sessionService.AccessCodec(),
		app.sessionService, app.userService, app.config.GuardConfirmUser)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h, err := httpapi.NewHandler(app.config, httpapi.Deps{
		Sessions: app.sessionService,
		Users:    app.userService,
		Uploads:  app.uploadService,
		Posts:    app.postService,
		Comments: app.commentService,
		Search:   app.searchService,
		Verifier: app.sessionService.AccessCodec(),
		Limiter:  app.limiter,
		Ready:    app.db,
		Log:      app.logger,
		Metrics:  app.metrics,
		Gatherer: app.registry,
	})
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	srv := h.Server(app.config.HTTPAddr)

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown", "err", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "err", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "err", err)
	}
}
