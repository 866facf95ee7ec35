// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/semvault-dev/semvault/internal/config"
	semerr "github.com/semvault-dev/semvault/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root semvault command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "semvault",
		Short:         "Semvault, semantic content storage and retrieval",
		Long:          "Semvault stores text as embeddings and retrieves, clusters, and organizes it by meaning.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging(viper.GetBool("verbose"))
			return nil
		},
	}

	// Global flags. These map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	// Register subcommands
	root.AddCommand(
		newStartCmd(),
		newAddCmd(),
		newSearchCmd(),
		newSimilarCmd(),
		newOrganizeCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
		config.WarnInsecurePermissions(cfgFile)
	} else {
		// Auto-discover semvault.yaml from standard locations.
		// Note: SetConfigType is intentionally omitted. When set, Viper
		// falls back to trying the bare config name without extension,
		// which collides with the ./semvault binary in the project root.
		v.SetConfigName("semvault")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/semvault")
		v.AddConfigPath("/etc/semvault")
		// No config file is fine; defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			// No config found anywhere. Bootstrap a default to ~/.config/semvault/.
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
		config.WarnInsecurePermissions(v.ConfigFileUsed())
	}

	// Bind persistent flags to viper keys.
	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return semerr.Errorf(semerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return semerr.Errorf(semerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
