// Forged is a generation daemon that turns natural-language prompts into
// reviewed multi-file projects over HTTP/SSE.
//
// Usage:
//
//	# Start the daemon with defaults
//	forged
//
//	# Configure via file and environment
//	forged -config /etc/forged/config.yaml
//	FORGED_SERVER_PORT=9000 forged
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/compress"
	"github.com/fyrsmithlabs/forged/internal/config"
	"github.com/fyrsmithlabs/forged/internal/engine"
	forgedhttp "github.com/fyrsmithlabs/forged/internal/http"
	"github.com/fyrsmithlabs/forged/internal/inference"
	"github.com/fyrsmithlabs/forged/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/forged/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  forged           Start the forged daemon\n")
			fmt.Fprintf(os.Stderr, "  forged version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("forged by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires configuration, logging, the inference gateway, the engine, and
// the HTTP server, then blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": "forged"},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("Starting forged",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("provider", cfg.Inference.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	client, err := inference.New(inference.Config{
		Provider:          inference.Provider(cfg.Inference.Provider),
		APIKey:            cfg.Inference.APIKey.Value(),
		BaseURL:           cfg.Inference.BaseURL,
		Model:             cfg.Inference.Model,
		Timeout:           cfg.Inference.Timeout.Duration(),
		MaxRetries:        cfg.Inference.MaxRetries,
		BackoffBase:       cfg.Inference.BackoffBase.Duration(),
		MaxConcurrent:     cfg.Inference.MaxConcurrent,
		RequestsPerSecond: cfg.Inference.RequestsPerSecond,
		Burst:             cfg.Inference.Burst,
	}, logger.Named("inference"))
	if err != nil {
		return fmt.Errorf("failed to create inference client: %w", err)
	}

	compressor := compress.New(compress.Config{
		CapacityFraction: cfg.Generation.CapacityFraction,
		KeepRecentTurns:  cfg.Generation.KeepRecentTurns,
	}, logger.Named("compress"))

	eng := engine.New(engine.Config{
		MaxIterations: cfg.Generation.MaxIterations,
		TokenBudget:   cfg.Generation.TokenBudget,
		ProducerRoles: cfg.Generation.ProducerRoles,
		RunTimeout:    cfg.Generation.RunTimeout.Duration(),
	}, client, compressor, logger.Named("engine"))

	server, err := forgedhttp.NewServer(eng, logger.Named("http"), forgedhttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	// Give in-flight log writes a moment before the process exits.
	time.Sleep(50 * time.Millisecond)
	return nil
}
