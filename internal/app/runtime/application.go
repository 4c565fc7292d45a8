// Package runtime wires configuration, stores, services and the HTTP server
// into a runnable application.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/lib/pq"

	app "github.com/emphub/workforce/internal/app"
	"github.com/emphub/workforce/internal/app/httpapi"
	"github.com/emphub/workforce/internal/app/metrics"
	"github.com/emphub/workforce/internal/app/services/payments"
	"github.com/emphub/workforce/internal/app/storage/memory"
	"github.com/emphub/workforce/internal/app/storage/postgres"
	"github.com/emphub/workforce/internal/auth"
	"github.com/emphub/workforce/internal/config"
	"github.com/emphub/workforce/internal/middleware"
	"github.com/emphub/workforce/pkg/logger"
)

// Application owns the HTTP server lifecycle and the background services
// behind it.
type Application struct {
	cfg    *config.Config
	log    *logger.Logger
	core   *app.Application
	server *http.Server
	db     *sql.DB
}

// NewApplication builds the full service graph from configuration.
func NewApplication(cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "workforce",
	})

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	var processor payments.Processor
	if cfg.Processor.SecretKey != "" {
		hp, err := payments.NewHTTPProcessor(nil, cfg.Processor.BaseURL, cfg.Processor.SecretKey, log)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("payment processor: %w", err)
		}
		processor = hp
	}

	core, err := app.New(stores, processor, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("wire services: %w", err)
	}

	router := httpapi.New(core, tokens, log)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log)
	if err := core.Attach(limiter); err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("register rate limiter: %w", err)
	}

	var handler http.Handler = router
	handler = middleware.LoggingMiddleware(log)(handler)
	handler = limiter.Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:    cfg,
		log:    log,
		core:   core,
		server: server,
		db:     db,
	}, nil
}

// Run starts background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.core.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and background services, then closes the
// database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.core.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

// buildStores selects postgres when a database URL is configured and falls
// back to the in-memory store otherwise.
func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sql.DB, error) {
	if cfg.Database.URL == "" {
		log.Info("no database configured, using in-memory store")
		mem := memory.New()
		return app.Stores{Users: mem, WorkEntries: mem, Payments: mem}, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.PingTimeout)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ensure schema: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{Users: store, WorkEntries: store, Payments: store}, db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
