// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestEnv isolates a command run: fresh viper state, temp home,
// in-repo temp data dir, and a backend that needs no disk setup.
func setupTestEnv(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SEMVAULT_DATA_DIR", t.TempDir())
	t.Setenv("SEMVAULT_STORAGE_BACKEND", "memory")
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand_AllSubcommands(t *testing.T) {
	setupTestEnv(t)

	output, err := runCommand(t, "--help")
	require.NoError(t, err)

	for _, cmd := range []string{"start", "add", "search", "similar", "organize", "stats", "version"} {
		assert.Contains(t, output, cmd, "root help should list %q subcommand", cmd)
	}
}

func TestVersionCommand(t *testing.T) {
	setupTestEnv(t)

	output, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "semvault")
	assert.Contains(t, output, "dev")
}

func TestAddCommand(t *testing.T) {
	setupTestEnv(t)

	output, err := runCommand(t, "add", "finanzas", "presupuesto", "ahorro", "--owner", "ana")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(output), "add prints the new record ID")
}

func TestAddCommand_BadMeta(t *testing.T) {
	setupTestEnv(t)

	_, err := runCommand(t, "add", "algo", "--meta", "sin-igual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key=value")
}

func TestAddCommand_BadKind(t *testing.T) {
	setupTestEnv(t)

	_, err := runCommand(t, "add", "algo", "--kind", "video")
	require.Error(t, err)
}

func TestSearchCommand_NoMatches(t *testing.T) {
	setupTestEnv(t)

	output, err := runCommand(t, "search", "cualquier", "cosa")
	require.NoError(t, err)
	assert.Contains(t, output, "No matches.")
}

func TestSimilarCommand_UnknownID(t *testing.T) {
	setupTestEnv(t)

	_, err := runCommand(t, "similar", "missing")
	require.Error(t, err)
}

func TestOrganizeCommand_EmptyOwner(t *testing.T) {
	setupTestEnv(t)

	output, err := runCommand(t, "organize", "nadie")
	require.NoError(t, err)
	assert.Contains(t, output, "0 items")
}

func TestStatsCommand(t *testing.T) {
	setupTestEnv(t)

	output, err := runCommand(t, "stats", "--owner", "ana")
	require.NoError(t, err)
	assert.Contains(t, output, "records: 0")
	assert.Contains(t, output, "owner ana")
}

func TestConfigFlag_BadFile(t *testing.T) {
	setupTestEnv(t)

	_, err := runCommand(t, "version", "--config", "/does/not/exist.yaml")
	require.Error(t, err)
}
