package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"combatsim/broker/internal/catalog"
	configpkg "combatsim/broker/internal/config"
	grpcstream "combatsim/broker/internal/grpc"
	httpapi "combatsim/broker/internal/http"
	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

const shutdownTimeout = 10 * time.Second

// serviceState tracks startup problems and uptime for readiness probes.
type serviceState struct {
	startedAt  time.Time
	startupErr error
	now        func() time.Time
}

func (s *serviceState) StartupError() error { return s.startupErr }

func (s *serviceState) Uptime() time.Duration { return s.now().Sub(s.startedAt) }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "combatsim:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configpkg.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logging.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	state := &serviceState{startedAt: time.Now(), now: time.Now}
	cat, err := loadCatalog(cfg.CatalogPath, logger)
	if err != nil {
		//1.- Keep serving the builtin catalog but report the failure through /readyz.
		state.startupErr = err
		logger.Error("catalog load failed, serving builtin catalog", logging.String("path", cfg.CatalogPath), logging.Error(err))
	}

	runner := simulation.NewRunner(
		simulation.WithLogger(logger),
		simulation.WithBatchSize(cfg.BatchSize),
		simulation.WithTrialLimits(cfg.DefaultTrials, cfg.MaxTrials),
		simulation.WithCombatDefaults(cfg.MaxVolleys, cfg.RulesVersion),
	)
	handlers := httpapi.NewHandlerSet(httpapi.Options{
		Logger:          logger,
		Readiness:       state,
		Catalog:         cat,
		Runner:          runner,
		RateLimiter:     httpapi.NewSlidingWindowLimiter(cfg.RateWindow, cfg.RateBurst, nil),
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		AllowedOrigins:  cfg.AllowedOrigins,
		PingInterval:    cfg.PingInterval,
	})
	mux := http.NewServeMux()
	handlers.Register(mux)
	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           logging.HTTPTraceMiddleware(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	//2.- gRPC shares the runner so /simulations and /metrics see its runs too.
	var grpcServer *grpc.Server
	if cfg.GRPCAddress != "" {
		serverOpts, err := configureGRPCSecurity(cfg, logger)
		if err != nil {
			return fmt.Errorf("configure grpc security: %w", err)
		}
		listener, err := net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer = grpc.NewServer(serverOpts...)
		grpcstream.RegisterSimulatorServer(grpcServer, grpcstream.NewService(runner, cat, grpcstream.WithLogger(logger)))
		go func() {
			logger.Info("gRPC simulator listening", logging.String("address", listenerURL(cfg.GRPCAddress, "grpc")))
			if err := grpcServer.Serve(listener); err != nil {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("simulation API listening",
			logging.String("address", listenerURL(cfg.Address, "http")),
			logging.String("stream", listenerURL(cfg.Address, "ws")+"/ws/simulate"),
			logging.Int("default_trials", cfg.DefaultTrials),
			logging.String("rules", cfg.RulesVersion),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server stopped", logging.Error(err))
		return err
	}

	//3.- Cancel in-flight runs so their callers get partial results before the listeners close.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, active := range runner.Registry().List() {
		_ = runner.Registry().Cancel(active.ID)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// loadCatalog reads the catalog at path, falling back to the builtin catalog when path is empty.
func loadCatalog(path string, logger *logging.Logger) (*catalog.Catalog, error) {
	if path == "" {
		parts, bots := catalog.Default().Len()
		logger.Info("using builtin catalog", logging.Int("parts", parts), logging.Int("bots", bots))
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return catalog.Default(), err
	}
	parts, bots := cat.Len()
	logger.Info("catalog loaded", logging.String("path", path), logging.Int("parts", parts), logging.Int("bots", bots))
	return cat, nil
}
