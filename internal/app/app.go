// Package app assembles the configured backends, the auth core and the HTTP
// router into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/auditlog"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	"github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/db/sqlite"
	"github.com/99minutos/auth-service/internal/infrastructure/hash"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/pkg/config"
)

const shutdownTimeout = 15 * time.Second

// Options are process-level collaborators that do not come from the environment.
type Options struct {
	Log zerolog.Logger
	// Registry receives HTTP metrics; nil uses the default registry.
	Registry *prometheus.Registry
}

// App owns every long-lived resource of a running server.
type App struct {
	cfg  *config.Config
	log  zerolog.Logger
	echo *echo.Echo
	auth *service.AuthService

	stopWorkers context.CancelFunc
	closers     []func(context.Context) error
}

// New connects the configured backends and wires the auth service into the
// router. On error every resource opened so far is released.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{cfg: cfg, log: opts.Log}
	defer func() {
		if err != nil {
			_ = a.release(context.Background())
		}
	}()

	hasher, err := hash.New(cfg.Auth.PasswordHasher)
	if err != nil {
		return nil, err
	}

	pingers := map[string]handler.Pinger{}

	var mongoDB *mongoHandle
	if cfg.Store.Credentials == "mongo" {
		mongoDB, err = a.connectMongo(ctx, pingers)
		if err != nil {
			return nil, err
		}
	}

	repo, err := a.userRepository(ctx, mongoDB, pingers)
	if err != nil {
		return nil, err
	}
	users := service.NewCredentialStore(repo, hasher, a.log)

	store, err := a.sessionStore(ctx, users, pingers)
	if err != nil {
		return nil, err
	}
	sessions := service.NewSessionManager(users, store, cfg.Auth.SessionName, a.log)

	var auditRepo ports.AuditRepository = auditlog.NewRepository(a.log)
	if mongoDB != nil {
		auditRepo = mongo.NewAuditRepository(mongoDB.db)
	}
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(auditRepo, a.log), a.log)
	workerCtx, stop := context.WithCancel(context.Background())
	a.stopWorkers = stop
	dispatcher.Start(workerCtx)

	a.auth, err = service.NewAuthService(users, sessions, dispatcher, service.AuthServiceConfig{
		AuthType:      service.AuthType(cfg.Auth.Type),
		ExcludedPaths: cfg.Auth.ExcludedPaths,
	}, a.log)
	if err != nil {
		_ = dispatcher.Close()
		if c, ok := store.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, err
	}

	a.echo = api.NewRouter(api.Deps{
		Auth:     a.auth,
		Health:   pingers,
		Log:      a.log,
		Registry: opts.Registry,
	})

	a.log.Info().
		Str("auth_type", cfg.Auth.Type).
		Str("credential_store", cfg.Store.Credentials).
		Str("session_store", cfg.Store.Sessions).
		Str("password_hasher", cfg.Auth.PasswordHasher).
		Msg("auth service assembled")
	return a, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.echo
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	addr := net.JoinHostPort("", a.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Msg("server started")
		errCh <- a.echo.Start(addr)
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr := a.echo.Shutdown(shutdownCtx)
		return errors.Join(shutdownErr, a.Close(shutdownCtx))
	case err := <-errCh:
		closeErr := a.Close(context.Background())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(fmt.Errorf("server: %w", err), closeErr)
		}
		return closeErr
	}
}

// Close drains the audit queue, stops the session sweeper and disconnects
// the backends.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.auth != nil {
		errs = append(errs, a.auth.Close())
		a.auth = nil
	}
	errs = append(errs, a.release(ctx))
	return errors.Join(errs...)
}

func (a *App) release(ctx context.Context) error {
	if a.stopWorkers != nil {
		a.stopWorkers()
		a.stopWorkers = nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

type mongoHandle struct {
	db *mongodriver.Database
}

func (a *App) connectMongo(ctx context.Context, pingers map[string]handler.Pinger) (*mongoHandle, error) {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: a.cfg.Mongo.URI, Database: a.cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	a.onClose(func(ctx context.Context) error { return mongo.Disconnect(ctx, client, 0) })
	pingers["mongo"] = handler.PingFunc(func(ctx context.Context) error {
		return mongo.Ping(ctx, client, 0)
	})
	a.log.Info().Str("database", a.cfg.Mongo.Database).Msg("connected to mongo")
	return &mongoHandle{db: db}, nil
}

func (a *App) userRepository(ctx context.Context, m *mongoHandle, pingers map[string]handler.Pinger) (ports.UserRepository, error) {
	switch a.cfg.Store.Credentials {
	case "mongo":
		repo := mongo.NewUserRepository(m.db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case "sqlite":
		repo, err := sqlite.Open(a.cfg.Store.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return repo.Close() })
		pingers["sqlite"] = repo
		return repo, nil
	default:
		return memory.NewUserRepository(), nil
	}
}

// sessionStore returns the session table; the auth service closes it.
func (a *App) sessionStore(ctx context.Context, users *service.CredentialStore, pingers map[string]handler.Pinger) (ports.SessionStore, error) {
	switch a.cfg.Store.Sessions {
	case "memory":
		return memory.NewSessionStore(memory.SessionStoreOptions{TTL: a.cfg.Auth.SessionDuration}, a.log), nil
	case "redis":
		client, err := redis.Connect(ctx, redis.Config{Addr: a.cfg.Redis.Addr, DB: a.cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return client.Close() })
		pingers["redis"] = redisPinger{client}
		a.log.Info().Str("addr", a.cfg.Redis.Addr).Msg("connected to redis")
		return redis.NewSessionStore(client, a.cfg.Auth.SessionDuration), nil
	default:
		return service.NewRecordSessions(users), nil
	}
}

type redisPinger struct {
	client goredis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return redis.Ping(ctx, p.client, 0)
}
