// Command wagerhoused is the settlement daemon entry point. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and starts the application in the configured mode.
//
// With -encrypt-key it instead encrypts the oracle private key from
// WAGERHOUSE_ORACLE_PRIVATE_KEY into a password-protected keyfile and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/wagerhouse/internal/app"
	"github.com/alanyoungcy/wagerhouse/internal/config"
	"github.com/alanyoungcy/wagerhouse/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured operating mode (server, keeper, full)")
	encryptKeyPath := flag.String("encrypt-key", "", "write an encrypted oracle keyfile to this path and exit")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *encryptKeyPath != "" {
		if err := encryptKeyFile(*encryptKeyPath); err != nil {
			logger.Error("failed to write keyfile", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("keyfile written", slog.String("path", *encryptKeyPath))
		return
	}

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("wagerhouse daemon starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if err == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("wagerhouse daemon stopped")
}

// encryptKeyFile reads the raw oracle key and password from the environment
// and writes the encrypted keyfile. The raw key never touches the config
// file or the command line.
func encryptKeyFile(path string) error {
	privateKey := os.Getenv("WAGERHOUSE_ORACLE_PRIVATE_KEY")
	if privateKey == "" {
		return fmt.Errorf("WAGERHOUSE_ORACLE_PRIVATE_KEY is not set")
	}
	password := os.Getenv("WAGERHOUSE_ORACLE_KEY_PASSWORD")
	if password == "" {
		return fmt.Errorf("WAGERHOUSE_ORACLE_KEY_PASSWORD is not set")
	}

	blob, err := crypto.EncryptKey(privateKey, password)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}
