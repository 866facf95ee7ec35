// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/semvault-dev/semvault/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the semvault HTTP server",
		Long:  "Load configuration, wire the embedding, storage, and clustering subsystems, and serve the HTTP API.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr, err := wireManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	if err := mgr.Init(cmd.Context()); err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, mgr)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Starting semvault on %s\n", cfg.Server.Listen); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
