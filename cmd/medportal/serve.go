package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/config"
	"github.com/medportal/medportal/internal/db"
	httpapp "github.com/medportal/medportal/internal/http"
	"github.com/medportal/medportal/internal/metrics"
	"github.com/medportal/medportal/internal/session/redisstore"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	sessionCookieName = "mp_session"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal HTTP server and the metrics listener.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := currentCommandExecutionContext().Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessions := newSessionManager(cfg)
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		store := pgxstore.New(pool)
		defer store.StopCleanup()
		sessions.Store = store
	case config.SessionStoreRedis:
		client, store, err := redisstore.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		sessions.Store = store
	}

	guard := access.NewGuard(access.DefaultTable())
	for _, problem := range guard.Table().Problems() {
		logger.Warn("access table problem", "problem", problem)
	}

	srv, err := httpapp.NewEchoServer(cfg, db.New(pool), sessions, guard, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr, "session_store", cfg.SessionStore)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.MetricsAddr, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// newSessionManager configures the session cookie. The store defaults to
// scs's in-memory store; runServe swaps in Postgres or Redis when configured.
func newSessionManager(cfg config.Config) *scs.SessionManager {
	sessions := scs.New()
	sessions.Lifetime = cfg.SessionLifetime
	sessions.IdleTimeout = cfg.SessionIdleTimeout
	sessions.Cookie.Name = sessionCookieName
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Path = "/"
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.AuthCookieSecure
	return sessions
}
