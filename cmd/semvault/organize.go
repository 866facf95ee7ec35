// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newOrganizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "organize <owner>",
		Short: "Cluster an owner's content into semantic groups",
		Args:  cobra.ExactArgs(1),
		RunE:  runOrganize,
	}
}

func runOrganize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr, err := wireManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	org, err := mgr.OrganizeUserContent(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "%d items, %d clustered, %d unclustered\n",
		org.Stats.TotalItems, org.Stats.ClusteredItems, org.Stats.UnclusteredItems); err != nil {
		return err
	}

	for _, c := range org.Clusters {
		if _, err := fmt.Fprintf(out, "\n%s (%d members, confidence %.2f)\n  %s\n  members: %s\n",
			c.Label, len(c.MemberIDs), c.Confidence, c.Description, strings.Join(c.MemberIDs, ", ")); err != nil {
			return err
		}
	}

	if len(org.Suggestions) > 0 {
		if _, err := fmt.Fprintln(out, "\nSuggestions:"); err != nil {
			return err
		}
		for _, s := range org.Suggestions {
			if _, err := fmt.Fprintf(out, "  [%s] %s\n", s.Type, s.Message); err != nil {
				return err
			}
		}
	}

	return nil
}
