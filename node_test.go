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

package scholarhub_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/scholarhub"
	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/blinklabs-io/scholarhub/host"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(
	t *testing.T,
	opts ...scholarhub.ConfigOptionFunc,
) *scholarhub.Node {
	t.Helper()
	opts = append(
		[]scholarhub.ConfigOptionFunc{
			scholarhub.WithPrometheusRegistry(prometheus.NewRegistry()),
			scholarhub.WithClock(host.NewFixedClock(1700000000)),
		},
		opts...,
	)
	n, err := scholarhub.New(scholarhub.NewConfig(opts...))
	require.NoError(t, err)
	return n
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := scholarhub.New(scholarhub.NewConfig(
		scholarhub.WithTTLPolicy(types.TTLPolicy{
			Threshold: 2 * time.Hour,
			ExtendTo:  time.Hour,
		}),
	))
	require.Error(t, err)

	_, err = scholarhub.New(scholarhub.NewConfig(
		scholarhub.WithShutdownTimeout(-time.Second),
	))
	require.Error(t, err)
}

func TestNodeStartStop(t *testing.T) {
	n := newTestNode(t)
	assert.Nil(t, n.Dao())
	assert.Nil(t, n.TokenVerifier())
	require.NoError(t, n.Start(t.Context()))
	// Start is idempotent
	require.NoError(t, n.Start(t.Context()))
	require.NotNil(t, n.Dao())
	require.NotNil(t, n.BuildRegistry())
	require.NotNil(t, n.Database())
	require.NotNil(t, n.EventBus())

	ctx := host.WithCaller(context.Background(), "alice")
	appId, err := n.Dao().SubmitApplication(ctx, "alice", "Tuition", "", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), appId)

	require.NoError(t, n.BuildRegistry().RegisterBuild(
		context.Background(), 7, "builder", "https://example.com/r.git", "",
	))
	verified, err := n.BuildRegistry().IsBuildVerified(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, verified)

	require.NoError(t, n.Stop())
	// Stop is idempotent
	require.NoError(t, n.Stop())
}

type lockedBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNodeLogsCommittedEvents(t *testing.T) {
	var logBuf lockedBuffer
	n := newTestNode(
		t,
		scholarhub.WithLogger(slog.New(slog.NewJSONHandler(&logBuf, nil))),
	)
	require.NoError(t, n.Start(t.Context()))
	defer n.Stop()
	require.NoError(t, n.BuildRegistry().RegisterBuild(
		context.Background(), 3, "builder", "https://example.com/r.git", "",
	))
	require.Eventually(
		t,
		func() bool {
			out := logBuf.String()
			return strings.Contains(out, "contract event committed") &&
				strings.Contains(out, "build.registered")
		},
		time.Second,
		10*time.Millisecond,
	)
}

func TestNodeRunUntilCancelled(t *testing.T) {
	n := newTestNode(
		t,
		scholarhub.WithApiListenAddress("127.0.0.1:0"),
		scholarhub.WithJwtSecret("secret"),
	)
	require.NotNil(t, n.TokenVerifier())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop after context cancellation")
	}
	require.NoError(t, n.Stop())
}

func TestNodeStateSurvivesRestart(t *testing.T) {
	dataDir := t.TempDir()
	n := newTestNode(t, scholarhub.WithDatabasePath(dataDir))
	require.NoError(t, n.Start(t.Context()))
	ctx := host.WithCaller(context.Background(), "alice")
	_, err := n.Dao().SubmitApplication(ctx, "alice", "Books", "", 40)
	require.NoError(t, err)
	require.NoError(t, n.Stop())

	n = newTestNode(t, scholarhub.WithDatabasePath(dataDir))
	require.NoError(t, n.Start(t.Context()))
	defer n.Stop()
	app, err := n.Dao().GetApplication(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Books", app.Title)
	stats, err := n.Dao().GetDaoStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalApplications)
}
