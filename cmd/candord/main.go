// Candord is the conversation-intelligence daemon.
//
// It serves the extraction and analysis pipeline over HTTP, exposing
// parse and analyze endpoints plus Prometheus metrics.
//
// Configuration is loaded from ~/.config/candor/config.yaml and
// overridden by environment variables. See internal/config for
// details.
//
// Usage:
//
//	# Start with defaults
//	candord
//
//	# Configure via environment
//	SERVER_PORT=9000 MODEL_PROVIDER=anthropic candord
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

	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/config"
	"github.com/candorlabs/candor/internal/llm"
	"github.com/candorlabs/candor/internal/logging"
	"github.com/candorlabs/candor/internal/patterns"
	"github.com/candorlabs/candor/internal/server"
	"github.com/candorlabs/candor/internal/service"
	"github.com/candorlabs/candor/internal/taxonomy"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  candord           Start the candord daemon\n")
			fmt.Fprintf(os.Stderr, "  candord version   Show version information\n")
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

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("candord\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logging.Sync(logger)

	client, err := llm.NewClient(cfg.Model)
	if err != nil {
		return fmt.Errorf("initialize model client: %w", err)
	}
	logger.Info("model backend",
		zap.String("provider", cfg.Model.Provider),
		zap.Bool("available", client.Available()))

	var source patterns.Source
	if cfg.Patterns.Path != "" {
		source = patterns.FileSource{Path: cfg.Patterns.Path}
	}
	catalog := patterns.NewCatalog(source, logger, patterns.WithTTL(cfg.Patterns.TTL))
	if cfg.Patterns.Watch && cfg.Patterns.Path != "" {
		// Watch blocks until the context is done, so it runs beside
		// the server rather than ahead of it.
		go func() {
			err := catalog.Watch(ctx, cfg.Patterns.Path)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("pattern catalog watch stopped", zap.Error(err))
			}
		}()
	}

	svc := service.NewService(client, catalog, taxonomy.NewStaticRepository(), nil, logger)

	srv, err := server.NewServer(svc, logger, &server.Config{
		Host:                 cfg.Server.Host,
		Port:                 cfg.Server.Port,
		MaxConversationChars: cfg.Limits.MaxConversationChars,
	})
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
