// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/semvault-dev/semvault/internal/manager"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored content by meaning",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().String("owner", "", "restrict results to one owner")
	cmd.Flags().Int("limit", 0, "maximum results (default 10)")
	cmd.Flags().Float64("threshold", -1, "minimum similarity score (default 0.5)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	owner, _ := cmd.Flags().GetString("owner")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := manager.SearchOptions{Limit: limit, OwnerID: owner}
	if cmd.Flags().Changed("threshold") {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		opts.Threshold = &threshold
	}

	mgr, err := wireManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	matches, err := mgr.SemanticSearch(cmd.Context(), strings.Join(args, " "), opts)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
		return err
	}

	return printMatches(cmd, matches)
}

func printMatches(cmd *cobra.Command, matches []manager.SearchMatch) error {
	out := cmd.OutOrStdout()
	for _, match := range matches {
		if _, err := fmt.Fprintf(out, "%.3f  %s  %s\n", match.Score, match.Record.ID, match.Record.Content); err != nil {
			return err
		}
		if match.SemanticContext != "" {
			if _, err := fmt.Fprintf(out, "       %s\n", match.SemanticContext); err != nil {
				return err
			}
		}
	}
	return nil
}
