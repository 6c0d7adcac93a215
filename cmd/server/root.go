package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pixelplace",
	Short: "pixelplace - shared pixel board with live chat",
	Long: `pixelplace serves a shared board of colored pixels over WebSocket.
Every connected client sees the same board, pixel updates are broadcast
in the order the server accepts them, and a moderated chat runs alongside.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().String("storage", "", "storage location (file:PATH, badger:DIR, redis://HOST:PORT/DB, memory:)")
}

// storageFlag returns the --storage flag when set, otherwise fallback.
func storageFlag(cmd *cobra.Command, fallback string) string {
	if value, _ := cmd.Flags().GetString("storage"); value != "" {
		return value
	}
	return fallback
}
