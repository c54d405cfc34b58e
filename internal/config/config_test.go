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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig(t *testing.T) {
	t.Helper()
	globalConfig = defaultConfig()
	// Keep the user's config files out of the picture
	t.Setenv("HOME", t.TempDir())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "scholarhub.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	resetGlobalConfig(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadCompareFullStruct(t *testing.T) {
	resetGlobalConfig(t)
	tmpFile := writeConfigFile(t, `
databasePath: "/var/lib/scholarhub"
bindAddr: "127.0.0.1"
apiPort: 9000
metricsPort: 9001
shutdownTimeout: "10s"
jwtSecret: "s3cret"
ttlThreshold: "1h"
ttlExtendTo: "24h"
tracing: true
tracingStdout: true
debug: true
`)
	expected := &Config{
		DatabasePath:    "/var/lib/scholarhub",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "127.0.0.1",
		ShutdownTimeout: "10s",
		JwtSecret:       "s3cret",
		TtlThreshold:    "1h",
		TtlExtendTo:     "24h",
		ApiPort:         9000,
		MetricsPort:     9001,
		Tracing:         true,
		TracingStdout:   true,
		Debug:           true,
	}
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, expected, cfg)

	policy, err := cfg.TTLPolicy()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, policy.Threshold)
	assert.Equal(t, 24*time.Hour, policy.ExtendTo)
	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)
}

func TestLoadConfigSectionAndDatabasePlugins(t *testing.T) {
	resetGlobalConfig(t)
	tmpFile := writeConfigFile(t, `
config:
  apiPort: 8181
database:
  blob:
    plugin: "badger"
    badger:
      gc: false
  metadata:
    plugin: "sqlite"
`)
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint(8181), cfg.ApiPort)
	assert.Equal(t, "badger", cfg.BlobPlugin)
	assert.Equal(t, "sqlite", cfg.MetadataPlugin)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	resetGlobalConfig(t)
	tmpFile := writeConfigFile(t, "apiPort: 9000\n")
	t.Setenv("SCHOLARHUB_API_PORT", "9100")
	t.Setenv("SCHOLARHUB_JWT_SECRET", "from-env")
	t.Setenv("SCHOLARHUB_DATABASE_BLOB_PLUGIN", "custom")
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint(9100), cfg.ApiPort)
	assert.Equal(t, "from-env", cfg.JwtSecret)
	assert.Equal(t, "custom", cfg.BlobPlugin)
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "apiPort: [1"},
		{name: "bad shutdown timeout", content: "shutdownTimeout: soon"},
		{name: "bad ttl", content: "ttlExtendTo: forever"},
		{
			name:    "threshold above extend-to",
			content: "ttlThreshold: 2h\nttlExtendTo: 1h\n",
		},
		{name: "port out of range", content: "apiPort: 70000"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resetGlobalConfig(t)
			_, err := LoadConfig(writeConfigFile(t, test.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	resetGlobalConfig(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTTLPolicyDisabledByDefault(t *testing.T) {
	cfg := defaultConfig()
	policy, err := cfg.TTLPolicy()
	require.NoError(t, err)
	assert.False(t, policy.Enabled())
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(t.Context()))
	cfg := defaultConfig()
	ctx := WithContext(t.Context(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
