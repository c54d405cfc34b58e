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

package badger

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWithDataDir(t *testing.T) {
	b := &BlobStoreBadger{}
	WithDataDir("/tmp/test")(b)
	if b.dataDir != "/tmp/test" {
		t.Errorf("Expected dataDir to be '/tmp/test', got '%s'", b.dataDir)
	}
}

func TestWithCacheSizes(t *testing.T) {
	b := &BlobStoreBadger{}
	WithBlockCacheSize(123456789)(b)
	WithIndexCacheSize(987654321)(b)
	if b.blockCacheSize != 123456789 {
		t.Errorf(
			"Expected blockCacheSize to be 123456789, got %d",
			b.blockCacheSize,
		)
	}
	if b.indexCacheSize != 987654321 {
		t.Errorf(
			"Expected indexCacheSize to be 987654321, got %d",
			b.indexCacheSize,
		)
	}
}

func TestWithLogger(t *testing.T) {
	b := &BlobStoreBadger{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	WithLogger(logger)(b)
	if b.logger != logger {
		t.Errorf("Expected logger to be set correctly")
	}
}

func TestWithPromRegistry(t *testing.T) {
	b := &BlobStoreBadger{}
	registry := prometheus.NewRegistry()
	WithPromRegistry(registry)(b)
	if b.promRegistry != registry {
		t.Errorf("Expected promRegistry to be set correctly")
	}
}

func TestWithGc(t *testing.T) {
	b := &BlobStoreBadger{gcEnabled: true}
	WithGc(false)(b)
	if b.gcEnabled {
		t.Errorf("Expected gcEnabled to be false")
	}
}

func TestInMemoryDisablesGc(t *testing.T) {
	b, err := New(WithGc(true))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer b.Close()
	if b.gcEnabled || b.gcTicker != nil {
		t.Errorf("Expected GC to be disabled for in-memory store")
	}
}
