// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the handoff command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/handoff/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "handoff",
	DisableAutoGenTag: true,
	Short:             "Handoff is the relay for end-to-end encrypted browser session transfer",
	Long: `Handoff is the server-side relay for end-to-end encrypted, one-shot browser
session transfer. Browser extensions encrypt a captured session against the
recipient's public key and hand the ciphertext to this service, which issues a
short-lived single-use token and routes ciphertext and control messages
between senders and recipients. Plaintext never transits the service.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the handoff server.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Fatalf("Failed to bind debug flag: %v", err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
