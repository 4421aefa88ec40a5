package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"BartWatch/internal/domain/repository"
	"BartWatch/internal/middleware"
	"BartWatch/internal/usecase"
	"BartWatch/pkg/config"
	xhttp "BartWatch/pkg/http"
	applogger "BartWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	monitor    *usecase.Monitor
	consumer   *usecase.DisplayConsumer
	pipeline   *middleware.NotificationPipeline
	display    repository.Display
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. httpServer may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	monitor *usecase.Monitor,
	consumer *usecase.DisplayConsumer,
	pipeline *middleware.NotificationPipeline,
	display repository.Display,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		monitor:    monitor,
		consumer:   consumer,
		pipeline:   pipeline,
		display:    display,
		httpServer: httpServer,
	}
}

// Run starts the monitor, the display consumer and the HTTP server, and blocks
// until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with caller-controlled cancellation.
func (a *App) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.display.Boot(ctx); err != nil {
		a.logger.Warn("display boot failed", applogger.Error(err))
	}
	a.pipeline.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := a.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("display consumer stopped", applogger.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := a.monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("monitor stopped", applogger.Error(err))
		}
	}()
	a.logger.Info("monitor running", applogger.Strings("stations", a.cfg.StationIDs()))

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	wg.Wait()
	return a.shutdown()
}

// shutdown stops the HTTP server and closes the sinks.
func (a *App) shutdown() error {
	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(context.Background()); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if err := a.pipeline.Close(); err != nil {
		a.logger.Warn("sink close error", applogger.Error(err))
		errs = append(errs, err)
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
