package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	handler "github.com/Wyydra/yacall/internal/adapter/driving/http"
	"github.com/Wyydra/yacall/internal/config"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for the control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if cfg.Server.APISecret == "" {
			return errors.New("CONTROL_API_SECRET is not set, the control API is open")
		}
		token, err := handler.IssueToken(cfg.Server.APISecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&envFile, "env-file", "", "load configuration from this file instead of ./.env")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "ui", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
