// Package runtime assembles the invoicing server from configuration.
package runtime

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	app "github.com/bgfactura/invoicing/internal/app"
	"github.com/bgfactura/invoicing/internal/app/httpapi"
	"github.com/bgfactura/invoicing/internal/app/services/auth"
	"github.com/bgfactura/invoicing/internal/app/services/clients"
	"github.com/bgfactura/invoicing/internal/app/services/settings"
	"github.com/bgfactura/invoicing/internal/app/storage/postgres"
	"github.com/bgfactura/invoicing/internal/cache"
	"github.com/bgfactura/invoicing/internal/config"
	"github.com/bgfactura/invoicing/internal/httputil"
	"github.com/bgfactura/invoicing/internal/logging"
	"github.com/bgfactura/invoicing/internal/platform/migrations"
)

// minSecretLen is the shortest accepted JWT signing key.
const minSecretLen = 16

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logging.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sql.DB
	done       chan struct{}
	closers    []func() error
}

// NewApplication constructs the server from cfg.
func NewApplication(cfg *config.Config) (*Application, error) {
	log := logging.New("invoicing", cfg.Logging.Level, cfg.Logging.Format)

	secret, err := parseSigningKey(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}

	a := &Application{cfg: cfg, log: log, done: make(chan struct{})}

	var stores app.Stores
	if cfg.UseMemoryStore() {
		log.Warn("DATABASE_URL not set; using in-memory store")
	} else {
		db, err := openDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		if cfg.Database.AutoMigrate {
			if err := migrations.Apply(db); err != nil {
				db.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		store := postgres.New(db)
		stores = app.Stores{
			Users:     store,
			Companies: store,
			Clients:   store,
			Products:  store,
			Documents: store,
			Expenses:  store,
			Banking:   store,
		}
	}

	var scopes cache.ScopeCache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedis(cfg.Redis.URL, cfg.Auth.ScopeTTL, log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("configure redis: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable; scope lookups fall back to the database")
		}
		cancel()
		scopes = redisCache
		a.closers = append(a.closers, redisCache.Close)
	}

	var vies clients.VATChecker
	if cfg.VIES.BaseURL != "" {
		vies = clients.NewVIESClient(httputil.NewClient(httputil.ClientConfig{
			BaseURL:    cfg.VIES.BaseURL,
			Timeout:    cfg.VIES.Timeout,
			MaxRetries: 2,
			Backoff:    250 * time.Millisecond,
			UserAgent:  "invoicing/" + config.Version,
		}), log)
	}

	application, err := app.New(stores, app.Options{
		Auth: auth.Config{
			Secret:     secret,
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		},
		Scopes:     scopes,
		ScopeTTL:   cfg.Auth.ScopeTTL,
		FontDir:    cfg.PDF.FontDir,
		VATChecker: vies,
		StrictEIK:  cfg.Locale.StrictEIK,
		Locale: settings.Locale{
			Language:   cfg.Locale.Language,
			Timezone:   cfg.Locale.Timezone,
			DateFormat: cfg.Locale.DateFormat,
		},
		OverdueSchedule: cfg.Jobs.OverdueSchedule,
		OverdueEnabled:  cfg.Jobs.OverdueEnabled,
	}, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.app = application

	opts := httpapi.Options{
		CORSOrigins:   cfg.CORS.AllowedOrigins,
		AuthRateLimit: cfg.Server.AuthRateLimit,
		AuthRateBurst: cfg.Server.AuthRateBurst,
		AuditLogPath:  cfg.Server.AuditLogPath,
		Version:       config.Version,
		Done:          a.done,
	}
	if a.db != nil {
		opts.DB = a.db
	}
	handler, err := httpapi.NewHandler(application, opts, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build http handler: %w", err)
	}

	a.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Run starts the services and the HTTP server and blocks until the context
// is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.httpServer.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown gracefully stops the HTTP server and the services.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	a.close()
	return nil
}

func (a *Application) close() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.WithError(err).Warn("error closing resource")
		}
	}
	a.closers = nil
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
}

// OpenDatabase opens and pings the configured PostgreSQL database.
func OpenDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openDatabase(cfg)
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// parseSigningKey accepts the JWT secret as raw text, hex or base64. Strings
// of exactly 16, 24 or 32 bytes are taken as raw keys.
func parseSigningKey(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("missing signing key")
	}

	// raw bytes
	if l := len(value); l == 16 || l == 24 || l == 32 {
		return []byte(value), nil
	}

	// hex
	if decoded, err := hex.DecodeString(value); err == nil && len(decoded) >= minSecretLen {
		return decoded, nil
	}

	// base64
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && len(decoded) >= minSecretLen {
		return decoded, nil
	}

	if len(value) >= minSecretLen {
		return []byte(value), nil
	}
	return nil, fmt.Errorf("must be at least %d bytes raw or a hex/base64 encoding of that length", minSecretLen)
}
