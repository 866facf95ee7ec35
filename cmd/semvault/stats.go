// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show content statistics",
		RunE:  runStats,
	}

	cmd.Flags().String("owner", "", "include a per-owner breakdown")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	owner, _ := cmd.Flags().GetString("owner")

	mgr, err := wireManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	report, err := mgr.ContentStats(cmd.Context(), owner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "records: %d\ndimensions: %d\nmemory: %d bytes\n",
		report.Store.Count, report.Store.Dimensions, report.Store.MemoryBytes); err != nil {
		return err
	}

	if report.Owner != nil {
		if _, err := fmt.Fprintf(out, "\nowner %s: %d items\n", report.Owner.OwnerID, report.Owner.TotalItems); err != nil {
			return err
		}
		for kind, count := range report.Owner.ByKind {
			if _, err := fmt.Fprintf(out, "  %s: %d\n", kind, count); err != nil {
				return err
			}
		}
	}

	return nil
}
