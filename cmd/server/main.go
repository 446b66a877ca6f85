package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "yacall",
	Short: "yacall places peer-to-peer calls over an encrypted message relay",
	Long: `yacall runs the call signaling engine for one identity. Invites,
responses and negotiation data travel as ordinary messages through the relay;
media flows directly between the two peers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
