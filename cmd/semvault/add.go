// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/semvault-dev/semvault/internal/store"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Embed and store a piece of content",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAdd,
	}

	cmd.Flags().String("owner", "", "owning user ID")
	cmd.Flags().String("kind", "text", "content kind (text, image, audio, document)")
	cmd.Flags().StringArray("meta", nil, "metadata entry as key=value (repeatable)")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	owner, _ := cmd.Flags().GetString("owner")
	kindFlag, _ := cmd.Flags().GetString("kind")
	metaFlags, _ := cmd.Flags().GetStringArray("meta")

	kind, err := store.ParseKind(kindFlag)
	if err != nil {
		return err
	}

	metadata, err := parseMetaFlags(metaFlags)
	if err != nil {
		return err
	}

	mgr, err := wireManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	id, err := mgr.AddContent(cmd.Context(), strings.Join(args, " "), metadata, kind, owner)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
	return err
}

// parseMetaFlags turns repeated key=value flags into string metadata.
func parseMetaFlags(pairs []string) (store.Metadata, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	md := store.Metadata{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, semerr.Errorf(semerr.CodeCLIInputInvalid, "metadata entry %q is not key=value", pair)
		}
		md[key] = store.StringValue(value)
	}
	return md, nil
}
