package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/compose-network/aebridge/aebridge-app/config"
	"github.com/compose-network/aebridge/metrics"
	apisrv "github.com/compose-network/aebridge/server/api"
	"github.com/compose-network/aebridge/server/api/bridge"
	apimw "github.com/compose-network/aebridge/server/api/middleware"
	"github.com/compose-network/aebridge/x/dispatch"
	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
	"github.com/compose-network/aebridge/x/transport/tcp"
)

// App represents the bridge application
type App struct {
	cfg *config.Config
	log zerolog.Logger

	terms      *terminology.Handle
	demo       *demoApp
	loop       *transport.Loopback
	dispatcher *dispatch.Dispatcher

	// TCP event responder, nil when transport.listen_addr is empty
	tcpServer *tcp.Server
	// API server (HTTP)
	apiServer *apisrv.Server

	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg: cfg,
		log: log.With().Str("component", "app").Logger(),
	}

	if err := app.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

// initialize sets up the application components
func (a *App) initialize() error {
	a.terms = loadTerminology(a.cfg.Terminology.Path)

	if err := a.initializeResponder(); err != nil {
		return err
	}
	if err := a.initializeDispatcher(); err != nil {
		return err
	}
	if a.cfg.Transport.ListenAddr != "" {
		a.initializeTransportServer()
	}
	return a.initializeAPIServer()
}

// loadTerminology returns a handle on the configured dictionary, or on the
// core vocabulary when none is configured. The file is read on first use.
func loadTerminology(path string) *terminology.Handle {
	if path == "" {
		return terminology.Loaded(terminology.Default())
	}
	return terminology.NewHandle(terminology.FileLoader(path))
}

// initializeResponder sets up the in-process demo application and the
// loopback transport that delivers events to it.
func (a *App) initializeResponder() error {
	// The demo application answers in its own core vocabulary.
	responder := dispatch.NewResponder(terminology.Default(), a.log)
	a.demo = newDemoApp("Demo", func() {
		if a.loop != nil {
			a.loop.Quit()
		}
	})
	if err := a.demo.register(responder, terminology.Default()); err != nil {
		return fmt.Errorf("failed to register demo handlers: %w", err)
	}
	a.loop = dispatch.NewLoopback(responder)
	return nil
}

// initializeDispatcher sends to the remote responder when one is
// configured and to the loopback otherwise.
func (a *App) initializeDispatcher() error {
	target, err := config.ParseTarget(a.cfg.Dispatch.Target)
	if err != nil {
		return err
	}
	opts, err := a.cfg.DispatchOptions()
	if err != nil {
		return err
	}
	opts = append(opts, dispatch.WithLogger(a.log), dispatch.WithTerminology(a.terms))
	if a.cfg.Metrics.Enabled {
		opts = append(opts, dispatch.WithMetrics(metrics.GetRegistry()))
	}

	var (
		t transport.Transport = a.loop
		r transport.Resolver  = a.loop
	)
	if remote := a.cfg.Dispatch.Remote; remote != "" {
		client := tcp.NewClient(remote, a.log)
		t, r = client, client
		a.log.Info().Str("remote", remote).Msg("Dispatching to remote responder")
	}

	d, err := dispatch.New(t, r, target, opts...)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.dispatcher = d
	return nil
}

// initializeTransportServer exposes the loopback responder over TCP.
func (a *App) initializeTransportServer() {
	timeouts := tcp.DefaultTimeoutConfig()
	timeouts.Read = a.cfg.Transport.ReadTimeout
	timeouts.Write = a.cfg.Transport.WriteTimeout
	if a.cfg.Transport.IdleTimeout > 0 {
		timeouts.Idle = a.cfg.Transport.IdleTimeout
	}

	a.tcpServer = tcp.NewServer(a.loop, a.log).
		WithTimeouts(timeouts).
		WithMaxMessageSize(a.cfg.Transport.MaxMessageSize)
	if a.cfg.Metrics.Enabled {
		a.tcpServer.WithMetrics(metrics.GetRegistry())
	}
}

// initializeAPIServer sets up the HTTP API server with all endpoints
func (a *App) initializeAPIServer() error {
	apiCfg := apisrv.Config{
		ListenAddr:        a.cfg.API.ListenAddr,
		ReadHeaderTimeout: a.cfg.API.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.API.ReadTimeout,
		WriteTimeout:      a.cfg.API.WriteTimeout,
		IdleTimeout:       a.cfg.API.IdleTimeout,
		MaxHeaderBytes:    a.cfg.API.MaxHeaderBytes,
		EnableCORS:        a.cfg.API.EnableCORS,
	}
	timeout := a.cfg.Dispatch.Timeout
	if timeout == 0 {
		timeout = dispatch.DefaultTimeout
	}
	apiCfg = apiCfg.CoverDispatch(timeout)
	if err := apiCfg.Validate(); err != nil {
		return fmt.Errorf("invalid api config: %w", err)
	}
	s := apisrv.NewServer(apiCfg, a.log)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))

	s.Router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	s.Router.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)

	if a.cfg.Metrics.Enabled {
		s.Router.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	h := bridge.NewHandler(a.terms, a.dispatcher, a.log)
	if err := h.RegisterMux(s.Router); err != nil {
		return fmt.Errorf("failed to register bridge routes: %w", err)
	}

	a.apiServer = s
	return nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.startedAt = time.Now()

	if a.tcpServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.tcpServer.ListenAndServe(runCtx, a.cfg.Transport.ListenAddr); err != nil {
				a.log.Error().Err(err).Msg("Event responder error")
			}
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.apiServer.Start(runCtx); err != nil {
			a.log.Error().Err(err).Msg("API server error")
		}
	}()

	return a.runWithGracefulShutdown(runCtx)
}

// runWithGracefulShutdown handles shutdown signals.
func (a *App) runWithGracefulShutdown(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	a.log.Info().Msg("Bridge started successfully")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	return a.shutdown()
}

// shutdown stops the servers and waits for them to drain.
func (a *App) shutdown() error {
	a.log.Info().Msg("Initiating graceful shutdown")

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.log.Info().Msg("Graceful shutdown complete")
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("shutdown timed out")
	}
}

// handleHealth responds to health check requests.
func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) handleStats(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, a.GetStats())
}

// GetStats returns application statistics.
func (a *App) GetStats() map[string]any {
	stats := map[string]any{
		"app_version":    Version,
		"app_build_time": BuildTime,
		"app_git_commit": GitCommit,
		"sends":          a.loop.Sends(),
		"resolutions":    a.loop.Resolutions(),
		"target":         a.cfg.Dispatch.Target,
		"relaunch":       a.cfg.Dispatch.Relaunch,
		"terminology":    a.terms.IsLoaded(),
	}
	if !a.startedAt.IsZero() {
		stats["uptime_seconds"] = time.Since(a.startedAt).Seconds()
	}
	return stats
}
