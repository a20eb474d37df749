// Package server wires and runs the development entry server: staff
// sessions, entry intake with optional S3 image storage, text extraction and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/metrics"
	"github.com/dmitrijs2005/containertracker/internal/ocr"
	"github.com/dmitrijs2005/containertracker/internal/server/config"
	"github.com/dmitrijs2005/containertracker/internal/server/entries"
	"github.com/dmitrijs2005/containertracker/internal/server/users"

	gs "github.com/dmitrijs2005/containertracker/internal/server/grpc"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	userService  *users.Service
	entryService *entries.Service
	extractor    ocr.Extractor
	registry     *prometheus.Registry
	metrics      *metrics.Server
	closers      []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, logCloser, err := logging.New(c.LogOptions())
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	app := &App{config: c, logger: logger, closers: []io.Closer{logCloser}}

	secret := c.SecretKey
	if secret == "" {
		if secret, err = common.MakeRandHexString(32); err != nil {
			app.Close()
			return nil, err
		}
		logger.Warn(ctx, "No secret key configured, sessions will not survive a restart")
	}

	app.userService, err = users.NewService(c.Users, secret, c.SessionTTL,
		users.WithLoginLimit(c.LoginLimit, c.LoginWindow))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("users init error: %w", err)
	}

	var images entries.ImageStore
	if c.S3.Bucket != "" {
		s3, err := entries.NewS3Store(ctx, c.S3)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		images = s3
		logger.Info(ctx, "Storing images in S3", "bucket", c.S3.Bucket)
	}
	app.entryService = entries.NewService(images, logger)

	if c.Gemini.APIKey != "" {
		g, err := ocr.NewGemini(ctx, c.Gemini.APIKey, c.Gemini.Model)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("gemini init error: %w", err)
		}
		app.extractor = g
		app.closers = append(app.closers, g)
	} else {
		app.extractor = ocr.Static{}
		logger.Info(ctx, "No model configured, text extraction answers " + common.UnableToRead)
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.NewServer(app.registry)

	return app, nil
}

func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		_ = app.closers[i].Close()
	}
	app.closers = nil
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
	s := gs.NewGRPCServer(app.config.ListenAddr, app.logger, app.userService, app.entryService, app.extractor, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.MetricsAddr == "" {
		return
	}
	app.logger.Info(ctx, "Serving metrics", "address", app.config.MetricsAddr)
	if err := metrics.Serve(ctx, app.config.MetricsAddr, app.registry); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or a
// listener fails.
func (app *App) Run(ctx context.Context) {
	defer app.Close()

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
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
