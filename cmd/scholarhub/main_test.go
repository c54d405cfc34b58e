// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/blinklabs-io/scholarhub/build"
	"github.com/blinklabs-io/scholarhub/database/models"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/blinklabs-io/scholarhub/scholarship"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCHOLARHUB_DATABASE_PATH", t.TempDir())
	t.Setenv("SCHOLARHUB_JWT_SECRET", "cli-test-secret")
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd, err := newRootCommand()
	require.NoError(t, err)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCommand(t, args...)
	require.NoError(t, err, "command: %v", args)
	return out
}

func TestVersionAndList(t *testing.T) {
	setupEnv(t)
	out := mustRun(t, "version")
	assert.True(t, strings.HasPrefix(out, programName+" "))

	out = mustRun(t, "list")
	assert.Contains(t, out, "badger")
	assert.Contains(t, out, "sqlite")
}

func TestListPlugins(t *testing.T) {
	shouldExit, _ := listPlugins("badger", "sqlite")
	assert.False(t, shouldExit)
	shouldExit, output := listPlugins("list", "list")
	assert.True(t, shouldExit)
	assert.Contains(t, output, "Available blob plugins:")
	assert.Contains(t, output, "Available metadata plugins:")
}

func TestApplicationLifecycle(t *testing.T) {
	setupEnv(t)

	out := mustRun(
		t,
		"app", "submit",
		"--as", "alice",
		"--title", "Tuition",
		"--descrip", "Spring term",
		"--amount", "250",
	)
	var submitted map[string]uint64
	require.NoError(t, json.Unmarshal([]byte(out), &submitted))
	assert.Equal(t, uint64(1), submitted["app_id"])

	for _, voter := range []string{"v1", "v2", "v3"} {
		mustRun(t, "app", "vote", "1", "--as", voter)
	}
	_, err := runCommand(t, "app", "vote", "1", "--as", "v1")
	require.ErrorIs(t, err, scholarship.ErrAlreadyVoted)

	mustRun(t, "app", "distribute", "1")
	_, err = runCommand(t, "app", "distribute", "1")
	require.ErrorIs(t, err, scholarship.ErrAlreadyDistributed)

	var app models.Scholarship
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "app", "get", "1")), &app))
	assert.True(t, app.IsApproved)
	assert.True(t, app.IsDistributed)
	assert.Equal(t, uint64(3), app.VotesFor)

	_, err = runCommand(t, "app", "get", "2")
	require.ErrorIs(t, err, scholarship.ErrApplicationNotFound)

	var apps []models.Scholarship
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "app", "list")), &apps))
	assert.Len(t, apps, 1)

	var stats models.DaoStats
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "app", "stats")), &stats))
	assert.Equal(t, uint64(1), stats.DistributedScholarships)
	assert.Equal(t, uint64(250), stats.TotalFundsDistributed)

	var events []eventOutput
	require.NoError(t, json.Unmarshal(
		[]byte(mustRun(t, "events", "--topic", "scholarship.vote")),
		&events,
	))
	assert.Len(t, events, 3)
}

func TestApplicationArgumentErrors(t *testing.T) {
	setupEnv(t)
	_, err := runCommand(t, "app", "submit", "--title", "x")
	require.Error(t, err)
	_, err = runCommand(t, "app", "vote", "0", "--as", "v1")
	require.ErrorIs(t, err, scholarship.ErrApplicationNotFound)
	_, err = runCommand(t, "app", "get", "abc")
	require.Error(t, err)
	_, err = runCommand(t, "app", "get", "-1")
	require.Error(t, err)
}

func TestBuildLifecycle(t *testing.T) {
	setupEnv(t)
	_, err := runCommand(t, "build", "verify", "9")
	require.ErrorIs(t, err, build.ErrBuildNotFound)

	mustRun(
		t,
		"build", "register", "9",
		"--builder", "ci",
		"--repo-url", "https://example.com/app.git",
	)
	var verified map[string]any
	require.NoError(t, json.Unmarshal(
		[]byte(mustRun(t, "build", "verified", "9")),
		&verified,
	))
	assert.Equal(t, false, verified["verified"])

	mustRun(t, "build", "verify", "9")
	var record models.BuildRecord
	require.NoError(t, json.Unmarshal(
		[]byte(mustRun(t, "build", "get", "9")),
		&record,
	))
	assert.True(t, record.Verified)
	assert.Equal(t, "ci", record.Builder)
}

func TestBuildIdZero(t *testing.T) {
	setupEnv(t)
	mustRun(t, "build", "register", "0", "--builder", "ci", "--repo-url", "r")
	mustRun(t, "build", "verify", "0")
	var record models.BuildRecord
	require.NoError(t, json.Unmarshal(
		[]byte(mustRun(t, "build", "get", "0")),
		&record,
	))
	assert.Equal(t, uint64(0), record.BuildId)
	assert.True(t, record.Verified)
}

func TestTokenIssue(t *testing.T) {
	setupEnv(t)
	out := mustRun(t, "token", "issue", "alice", "--ttl", "1h")
	tokens, err := host.NewTokenVerifier("cli-test-secret")
	require.NoError(t, err)
	id, err := tokens.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, host.Identity("alice"), id)
}
