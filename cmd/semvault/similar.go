// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "Find content similar to an existing item",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimilar,
	}

	cmd.Flags().Int("limit", 0, "maximum results (default 5)")

	return cmd
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")

	mgr, err := wireManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	matches, err := mgr.FindSimilarContent(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "No similar content.")
		return err
	}

	return printMatches(cmd, matches)
}
