// Package main implements the comdirect CLI.
package main

import (
	"fmt"
	"os"

	"github.com/annettschwarze/comdirect-go/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "comdirect",
	Short: "Fetch comdirect account and transaction data",
	Long: `comdirect drives the comdirect REST API: it authenticates with your
credentials, walks the session-TAN (2FA) handshake, and fetches account
balances and transactions into a local cache.

Credentials are read from the COMDIRECT_CLIENT_ID, COMDIRECT_CLIENT_SECRET,
COMDIRECT_USERNAME and COMDIRECT_PASSWORD environment variables and are never
written to disk.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.FromEnv())
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync(logger)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
