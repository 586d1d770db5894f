package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/macrolink-io/macrolink/internal/config"
	configstore "github.com/macrolink-io/macrolink/internal/config/store"
	"github.com/macrolink-io/macrolink/internal/daemon"
	macroversion "github.com/macrolink-io/macrolink/internal/version"
)

var (
	flagBinding string
	flagPort    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "macrolinkd",
		Short:         "MacroLink daemon - TCP trigger listeners and Automator dispatch",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	rootCmd.Version = macroversion.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	rootCmd.Flags().StringVar(&flagBinding, "binding", "", "HTTP API bind address (default localhost)")
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP API port (default from settings)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logging: %v\n", err)
	}

	if daemon.IsRunning() {
		return fmt.Errorf("daemon is already running")
	}

	if _, err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to prepare directories: %w", err)
	}

	store, err := configstore.Open(configstore.Options{})
	if err != nil {
		return fmt.Errorf("failed to open config store: %w", err)
	}

	d, err := daemon.New(daemon.Options{
		Store:   store,
		Binding: flagBinding,
		Port:    flagPort,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := d.Start(); err != nil {
		store.Close()
		return err
	}
	log.Printf("MacroLink daemon started (PID: %d)", os.Getpid())
	log.Printf("HTTP API: http://localhost:%d", d.Port())

	sig := <-sigChan
	log.Printf("Received signal %s, shutting down...", sig)
	if err := d.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Daemon stopped")
	return nil
}

func setupLogging() error {
	paths, err := config.EnsureDirs()
	if err != nil {
		return fmt.Errorf("initialise directories: %w", err)
	}

	logPath := filepath.Join(paths.Logs, "daemon.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	multi := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multi)
	log.SetFlags(log.LstdFlags)

	log.Printf("=== MacroLink Daemon Starting (PID: %d) ===", os.Getpid())
	log.Printf("Log file: %s", logPath)
	return nil
}
