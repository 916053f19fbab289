// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root aurora command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aurora",
		Short:         "Aurora 3D Agent, the conversational agent for the Anamnesis platform",
		Long:          "Aurora runs the Anamnesis platform's medical-education conversational agent: an HTTP service that answers student questions, loads clinical cases, and walks through 3D anatomy.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags. Config precedence is flag > env (AURORA_) > file > defaults.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newVersionCmd(),
		newChatCmd(),
	)

	return root
}
