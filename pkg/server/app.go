package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/zhutoutoutousan/worldquant-miner/pkg/cache"
	"github.com/zhutoutoutousan/worldquant-miner/pkg/config"
	xhttp "github.com/zhutoutoutousan/worldquant-miner/pkg/http"
	applogger "github.com/zhutoutoutousan/worldquant-miner/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	handler    xhttp.Handler
	cacheSvc   cache.Service
	logger     *applogger.Logger
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, handler xhttp.Handler, cacheSvc cache.Service, logger *applogger.Logger) *App {
	return &App{
		cfg:      cfg,
		handler:  handler,
		cacheSvc: cacheSvc,
		logger:   logger,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("relay listening",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("mode", a.cfg.Relay.Mode))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services. Echo's Shutdown cancels request
// contexts, which ends in-flight relay invocations.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.cacheSvc != nil {
		if err := a.cacheSvc.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
