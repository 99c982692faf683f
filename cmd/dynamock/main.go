package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dynamock/dynamock/internal/api"
	"github.com/dynamock/dynamock/internal/config"
	"github.com/dynamock/dynamock/internal/models"
	"github.com/dynamock/dynamock/internal/registry"
	"github.com/dynamock/dynamock/internal/storage"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dynamock",
		Short: "dynamock — Dynamic mock HTTP response server",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(registerCmd(&configPath))
	rootCmd.AddCommand(endpointsCmd(&configPath))
	rootCmd.AddCommand(deleteCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dynamock server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging)

			store, err := setupStorage(cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("database migrations completed")

			apiKey := cfg.Auth.APIKey
			if apiKey == "" {
				apiKey = models.NewAPIKey()
				log.Warn().Str("api_key", apiKey).Msg("auth.api_key not configured, generated a key for this run")
			}

			server := api.NewServer(cfg.Server, apiKey, store, log)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server error")
				}
			}()

			log.Info().
				Str("version", version).
				Int("port", cfg.Server.Port).
				Str("storage", cfg.Storage.Driver).
				Msg("dynamock is running")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("shutting down...")

			if err := server.Shutdown(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			log.Info().Msg("dynamock stopped")
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// storeFromConfig runs migrations as part of opening the store.
			_, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			cleanup()

			fmt.Println("Migrations completed successfully.")
			return nil
		},
	}
}

func registerCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a mock endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			method, _ := cmd.Flags().GetString("method")
			data, _ := cmd.Flags().GetString("data")
			if url == "" || data == "" {
				return fmt.Errorf("--url and --data are required")
			}

			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := registry.NewService(store)
			result, err := svc.Register(context.Background(), url, method, json.RawMessage(data))
			if err != nil {
				return fmt.Errorf("failed to register endpoint: %w", err)
			}

			out, _ := json.MarshalIndent(result.Endpoint, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().String("url", "", "url path of the mock endpoint")
	cmd.Flags().String("method", "", "HTTP method (default GET)")
	cmd.Flags().String("data", "", "JSON object to serve on match")
	return cmd
}

func endpointsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List all registered endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := registry.NewService(store)
			endpoints, err := svc.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list endpoints: %w", err)
			}

			if len(endpoints) == 0 {
				fmt.Println("No endpoints registered.")
				return nil
			}

			for _, ep := range endpoints {
				fmt.Printf("  %d  %-7s %s  (updated %s)\n", ep.ID, ep.MethodHTTP, ep.URL, ep.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func deleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete all mappings for a path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: dynamock delete <path>")
			}

			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := registry.NewService(store)
			if err := svc.Remove(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete endpoint: %w", err)
			}

			fmt.Println("Endpoint deleted.")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dynamock v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func setupStorage(cfg config.StorageConfig, log zerolog.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "sqlite":
		log.Info().Str("path", cfg.SQLite.Path).Msg("using SQLite storage")
		return storage.NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func storeFromConfig(configPath string) (storage.Storage, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.Logging)
	store, err := setupStorage(cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, func() { store.Close() }, nil
}
