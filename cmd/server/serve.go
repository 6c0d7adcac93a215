package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/pixelplace/internal/config"
	"github.com/Tyrowin/pixelplace/internal/server"
	"github.com/Tyrowin/pixelplace/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the board server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides PORT)")
	serveCmd.Flags().String("static", "", "directory with the browser client (overrides STATIC_DIR)")
	rootCmd.AddCommand(serveCmd)

	// Running the binary without a subcommand serves.
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.RunE = runServe
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}
	if static, _ := cmd.Flags().GetString("static"); static != "" {
		cfg.StaticDir = static
	}
	cfg.Storage = storageFlag(cmd, cfg.Storage)

	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("opening storage %q: %w", cfg.Storage, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Closing storage failed", "error", err)
		}
	}()

	app, err := server.NewApp(ctx, cfg, store, log)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(cmd.OutOrStdout(), "pixelplace %dx%d on %s (storage %s)\n",
		cfg.BoardWidth, cfg.BoardHeight, cfg.Addr(), cfg.Storage)

	return app.Run(ctx)
}
