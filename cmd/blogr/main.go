package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/blogr/internal/app"
	"github.com/saltyorg/blogr/internal/config"
	"github.com/saltyorg/blogr/internal/janitor"
	"github.com/saltyorg/blogr/internal/logging"
	"github.com/saltyorg/blogr/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg := config.Default()
	a := app.New(cfg)

	if err := newRootCommand(a, cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(a *app.App, cfg *config.Config) *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:          "blogr",
		Short:        "Blogr - a small blog backed by SQLite",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Check for DB_PATH env var if flag not set
			if !cmd.Flags().Changed("db") {
				if envDB := os.Getenv("DB_PATH"); envDB != "" {
					cfg.Database = envDB
				}
			}
			cfg.ApplySettings(config.NewLoader(config.EnvSettings{}))
			cfg.LogLevel = logging.LevelFromVerbosity(verbosity)

			logging.Apply(cfg)

			return a.Prepare()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.Database, "db", "d", cfg.Database, "SQLite database path (or set DB_PATH env var)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	rootCmd.AddCommand(newServeCommand(a, cfg))
	rootCmd.AddCommand(a.Commands()...)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// Skips the root setup: nothing to open
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "blogr %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	return rootCmd
}

func newServeCommand(a *app.App, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a, cfg)
		},
	}

	cmd.Flags().IntVarP(&cfg.Port, "port", "p", 0, "HTTP server port (required, or set PORT env var)")
	cmd.Flags().StringVarP(&cfg.Bind, "bind", "b", "", "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
	cmd.Flags().StringVarP(&cfg.AllowSubnet, "allow-subnet", "a", "", "CIDR subnet allowed to connect (e.g., 192.168.1.0/24)")
	cmd.Flags().BoolVar(&cfg.Dev, "dev", false, "Development mode (cookies without Secure flag)")

	return cmd
}

func serve(parent context.Context, a *app.App, cfg *config.Config) error {
	// Check for PORT env var if flag not set
	if cfg.Port == 0 {
		if envPort := os.Getenv("PORT"); envPort != "" {
			if _, err := fmt.Sscanf(envPort, "%d", &cfg.Port); err != nil {
				return fmt.Errorf("invalid PORT environment variable %q: %w", envPort, err)
			}
		}
	}

	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	// Warn if binding to all interfaces without an allow list
	if (cfg.Bind == "" || cfg.Bind == "0.0.0.0" || cfg.Bind == "::") && cfg.AllowSubnet == "" {
		log.Warn().Msg("Server is accessible from all interfaces without subnet restrictions. Consider using --bind or --allow-subnet for security.")
	}

	log.Info().
		Str("version", version).
		Int("port", cfg.Port).
		Str("bind", cfg.Bind).
		Str("allow_subnet", cfg.AllowSubnet).
		Str("database", cfg.Database).
		Msg("Starting Blogr")

	server, err := web.NewServer(a)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	sessionJanitor := janitor.New(a, cfg.JanitorSchedule)
	if started, err := sessionJanitor.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start session janitor")
	} else if !started {
		log.Debug().Msg("Session janitor not started (no schedule configured)")
	}
	defer sessionJanitor.Stop()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Blogr stopped")
	return nil
}
