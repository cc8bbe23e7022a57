package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kiyo-e/pairlane/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "pairlane",
	Short: "Peer-to-peer file transfer over WebRTC data channels",
	Long: `Pairlane transfers files directly between devices over a WebRTC data
channel. The server only pairs peers; file bytes never touch it, and an
optional end-to-end layer encrypts every chunk with a key that rides in
the URL fragment.`,
}

// Execute runs the CLI. Called once from main.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
