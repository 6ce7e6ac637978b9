package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"player-session/internal/app"
	"player-session/internal/config"
	"player-session/internal/playtime"
	"player-session/internal/service"
)

var (
	configPath string
	cfg        *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sessiond",
		Short: "Player session layer for the game server",
		Long: `sessiond keeps connected players' nickname, playtime and balance in memory
and writes them back to durable storage when they leave.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			configureLogging(cfg.Log)
			log.Info().Msg("Configuration loaded successfully")
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config", "Directory containing config.yaml")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTopCmd())

	return rootCmd
}

func configureLogging(c config.LogConfig) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !c.Pretty {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run checkpoints, metrics and the shutdown flush until SIGINT or SIGTERM",
		Long: `serve runs the background side of the session layer: periodic checkpoints,
the /metrics and /healthz endpoint, and the final flush of every session on
SIGINT or SIGTERM.

It has no inbound path for joins and quits. The layer is meant to be embedded
as a library: the host game server builds it with app.New and calls
Sessions.Connect and Sessions.Disconnect from its own join and quit events,
then runs App.Run alongside its main loop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.HealthCheck(ctx); err != nil {
				return err
			}

			log.Info().
				Dur("checkpoint_interval", cfg.Session.CheckpointInterval).
				Bool("metrics", cfg.Metrics.Enabled).
				Msg("Session layer is running")

			if err := a.Run(ctx); err != nil {
				return err
			}
			log.Info().Msg("Session layer stopped gracefully")
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the players table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			// Opening the store applies migrations.
			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			a.Close()
			log.Info().Str("driver", cfg.Database.Driver).Msg("Migrations completed successfully")
			return nil
		},
	}
}

func newTopCmd() *cobra.Command {
	var (
		by    string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the stored leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			var entries []service.Entry
			switch by {
			case "balance":
				entries, err = a.Ranking.TopBalances(ctx, limit)
			case "playtime":
				entries, err = a.Ranking.TopPlaytime(ctx, limit)
			default:
				return fmt.Errorf("unknown ranking %q, want balance or playtime", by)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tPLAYER\tBALANCE\tPLAYTIME")
			for i, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, e.Nickname, e.Balance.Format(cfg.Economy.Symbol), playtime.Format(e.Playtime))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&by, "by", "balance", "Ranking: balance or playtime")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of players to show")
	return cmd
}
