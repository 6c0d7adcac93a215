// Package server constructs and starts the pixelplace HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tyrowin/pixelplace/internal/config"
	"github.com/Tyrowin/pixelplace/internal/policy"
	"github.com/Tyrowin/pixelplace/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// CreateServer creates and configures an HTTP server with the specified address and handler.
// It sets reasonable timeout values for production use.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns nil when the server was closed by ShutdownServer.
func StartServer(server *http.Server, log *slog.Logger) error {
	log.Info("Server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, log *slog.Logger) error {
	log.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return err
	}

	log.Info("HTTP server shutdown completed")
	return nil
}

// App ties the hub, the persister and the HTTP server together for one
// process lifetime.
type App struct {
	cfg       config.Config
	store     storage.Store
	hub       *Hub
	persister *storage.Persister
	server    *http.Server
	log       *slog.Logger
}

// NewApp restores the board and chat from store and builds the hub and
// HTTP server. The caller keeps ownership of store.
func NewApp(ctx context.Context, cfg config.Config, store storage.Store, log *slog.Logger) (*App, error) {
	words := cfg.Words()
	if words == nil {
		words = policy.DefaultWords()
	}
	pol, err := policy.New(words, cfg.CensorRune(), cfg.MaxNameLength)
	if err != nil {
		return nil, err
	}

	b, c, err := storage.LoadState(ctx, store, cfg.BoardWidth, cfg.BoardHeight, cfg.ChatHistory, log)
	if err != nil {
		return nil, err
	}
	hub := NewHub(b, c, pol, OptionsFromConfig(cfg), log)

	return &App{
		cfg:       cfg,
		store:     store,
		hub:       hub,
		persister: storage.NewPersister(store, b, c, cfg.SaveInterval, log),
		server:    CreateServer(cfg.Addr(), SetupRoutes(hub, cfg.StaticDir)),
		log:       log,
	}, nil
}

// Hub returns the application's hub.
func (a *App) Hub() *Hub { return a.hub }

// Handler returns the application's router.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves until ctx is cancelled or the listener fails, then stops the
// HTTP server and the hub and writes a final snapshot.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run()
	a.log.Info("Hub started and ready to manage WebSocket connections")

	persistCtx, stopPersist := context.WithCancel(context.Background())
	persisterDone := make(chan struct{})
	go func() {
		defer close(persisterDone)
		a.persister.Run(persistCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- StartServer(a.server, a.log)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
	case runErr = <-serveErr:
		if runErr != nil {
			a.log.Error("HTTP server failed", "error", runErr)
		}
	}

	if err := ShutdownServer(a.server, shutdownTimeout, a.log); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if err := a.hub.Shutdown(shutdownTimeout); err != nil {
		a.log.Warn("Hub shutdown incomplete", "error", err)
	}

	stopPersist()
	<-persisterDone

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.persister.Flush(flushCtx); err != nil {
		a.log.Error("Final save failed", "error", err)
		runErr = errors.Join(runErr, err)
	} else {
		a.log.Info("Final state saved")
	}

	return runErr
}
