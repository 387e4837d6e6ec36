package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dalmia/vidly/api"
	"github.com/dalmia/vidly/api/types"
	"github.com/dalmia/vidly/internal/database"
	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/pkg/config"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Vidly API server with the configured settings.

The server listens for HTTP requests and WebSocket connections,
providing video processing, transcript chat, playback position
tracking, and live dictation.

Example:
  vidly serve
  vidly serve --port 9090
  vidly serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Use config values if flags not provided
	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	// Session store
	db, err := database.Initialize(cfg.Database.DSN, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[ERROR] Failed to close database: %v", err)
		}
	}()

	if err := db.AutoMigrate(&models.Session{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	address := fmt.Sprintf("%s:%d", serverHost, serverPort)
	srv := api.NewServer(address)

	deps := &types.Dependencies{DB: db}
	srv.SetDependencies(deps)

	if err := srv.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// Make sure there is always an active session to mirror into
	if deps.Sessions != nil {
		if _, err := deps.Sessions.EnsureInitial(cmd.Context()); err != nil {
			return fmt.Errorf("failed to prepare initial session: %w", err)
		}
	}

	log.Printf("[INFO] Starting Vidly API server on %s", address)

	// Channel to listen for interrupt signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	log.Printf("[INFO] Server is ready to handle requests at %s", address)

	// Wait for interrupt signal or server error
	select {
	case <-stop:
		log.Printf("[INFO] Shutting down server...")
	case err := <-serverErr:
		log.Printf("[ERROR] %v", err)
		log.Printf("[INFO] Shutting down server...")
	}

	// Attempt graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] Server forced to shutdown: %v", err)
		return err
	}

	log.Printf("[INFO] Server gracefully stopped")
	return nil
}
