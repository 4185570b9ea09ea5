package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger   *zap.Logger
	config   *Config
	server   *http.Server
	cleanups []func()
}

// storages groups the repositories selected by the configuration
// and the functions which release their resources.
type storages struct {
	books    BookStorage
	loans    LoanStorage
	cleanups []func()
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// Setup the logging module with a size-rotated file writer.
	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, NewTickClock(clock))
	cleanups := []func(){
		func() {
			if err := flusher(); err != nil {
				fmt.Println("error during logs flushing: ", err)
			}
		},
		func() {
			if err := logWriter.Close(); err != nil {
				fmt.Println("error during closing of log file: ", err)
			}
		},
	}

	stores, err := SetupStorages(context.Background(), config, logger)
	if err != nil {
		runCleanups(cleanups)
		return nil, err
	}
	// storages must be released before the logger.
	cleanups = append(stores.cleanups, cleanups...)

	// Setup the api services and routing.
	bookService := NewBookService(logger, config, stores.books)
	loanService := NewLoanService(logger, config, clock, stores.loans)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		bookService,
		loanService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
		ConnContext:    SaveConnInContext,
		ErrorLog:       zap.NewStdLog(logger),
	}

	return &App{
		logger:   logger,
		config:   config,
		server:   srv,
		cleanups: cleanups,
	}, nil
}

// SetupStorages opens the configured storage engine and optionally
// puts the redis cache in front of the book storage.
func SetupStorages(ctx context.Context, config *Config, logger *zap.Logger) (*storages, error) {
	stores := &storages{}
	switch config.Storage.Engine {
	case EngineBolt:
		client, err := GetBoltDBClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb: %s", err)
		}
		stores.books = NewBoltBookStorage(logger, client)
		stores.loans = NewBoltLoanStorage(logger, client)
		stores.cleanups = append(stores.cleanups, func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close boltdb", zap.Error(err))
			}
		})

	default:
		db, err := GetDatabaseClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %s", err)
		}
		if config.Database.Migrate {
			if err = MigrateSchema(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate database: %s", err)
			}
		}
		stores.books = NewSQLBookStorage(logger, db)
		stores.loans = NewSQLLoanStorage(logger, db)
		stores.cleanups = append(stores.cleanups, func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", zap.Error(err))
			}
		})
	}

	if config.Redis.Enabled {
		client, err := GetRedisClient(config)
		if err != nil {
			_ = client.Close()
			runCleanups(stores.cleanups)
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		stores.books = NewRedisBookCache(logger, client, config.Redis.CacheTTL, stores.books)
		stores.cleanups = append([]func(){func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close redis client", zap.Error(err))
			}
		}}, stores.cleanups...)
	}

	logger.Info("storages ready",
		zap.String("storage.engine", config.Storage.Engine),
		zap.String("database.driver", config.Database.Driver),
		zap.Bool("redis.cache", config.Redis.Enabled),
	)
	return stores, nil
}

func runCleanups(cleanups []func()) {
	for _, f := range cleanups {
		f()
	}
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	runCleanups(app.cleanups)
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		return nil
	}
}
