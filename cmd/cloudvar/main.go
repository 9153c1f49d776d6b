// Command cloudvar runs the cloud-variable pub/sub WebSocket server.
// Adapted from the teacher's cmd/single/main.go: automaxprocs blank import,
// .env/env config loading, and signal-driven graceful shutdown kept as-is;
// Kafka broker wiring dropped along with the Kafka/NATS fan-out it fed.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/adred-codev/cloudvar/internal/audit"
	"github.com/adred-codev/cloudvar/internal/config"
	"github.com/adred-codev/cloudvar/internal/engine"
	"github.com/adred-codev/cloudvar/internal/logging"
	"github.com/adred-codev/cloudvar/internal/metrics"
	"github.com/adred-codev/cloudvar/internal/resourceguard"
	"github.com/adred-codev/cloudvar/internal/transport"
	_ "go.uber.org/automaxprocs"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		port    = flag.Int("p", 9082, "TCP port to listen on")
		unix    = flag.String("u", "", "unix domain socket path (overrides -p)")
		webRoot = flag.String("w", "./playground", "static playground directory")
		debug   = flag.Bool("debug", false, "enable debug logging (overrides LOG_LEVEL)")
	)
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	// Only flags given on the command line override the loaded config.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Addr = fmt.Sprintf(":%d", *port)
		case "w":
			cfg.WebRoot = *webRoot
		}
	})
	if *unix != "" {
		cfg.UnixSocket = *unix
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	cfg.Print()
	cfg.LogConfig(logger)
	logger.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("starting")

	guard, err := resourceguard.New(resourceguard.Config{
		AcceptsPerSec:      cfg.MaxConnectAcceptsPerSec,
		AcceptBurst:        cfg.MaxConnectBurst,
		CPURejectThreshold: cfg.CPURejectThreshold,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start resource guard")
		return 1
	}

	guardCtx, cancelGuard := context.WithCancel(context.Background())
	defer cancelGuard()
	go guard.Run(guardCtx, 2*time.Second)

	auditLogger := audit.New(logger, audit.Info)
	eng := engine.New(logger, auditLogger)
	go eng.Run()

	srv := &transport.Server{
		Engine:  eng,
		Guard:   guard,
		WebRoot: cfg.WebRoot,
		Logger:  logger,
	}

	httpServer := &http.Server{Handler: srv}

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil {
			logger.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if cfg.UnixSocket != "" {
			os.Remove(cfg.UnixSocket)
			l, err := net.Listen("unix", cfg.UnixSocket)
			if err != nil {
				errCh <- err
				return
			}
			errCh <- httpServer.Serve(l)
			return
		}
		httpServer.Addr = cfg.Addr
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server failed to start")
			return 1
		}
	case <-sigCh:
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	httpServer.Shutdown(shutdownCtx)

	eng.Submit(engine.Event{Kind: engine.Destroy})
	eng.Stop()

	return 0
}
