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
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/scholarhub/database/plugin"
	"github.com/blinklabs-io/scholarhub/database/types"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "scholarhub.config"

const (
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	DefaultShutdownTimeout = "30s"

	envPrefix = "scholarhub"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DatabasePath    string `yaml:"databasePath"    split_words:"true"`
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"DATABASE_BLOB_PLUGIN"`
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"DATABASE_METADATA_PLUGIN"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	JwtSecret       string `yaml:"jwtSecret"       split_words:"true"`
	// Lifetime extension applied to contract state after each write.
	// An empty or zero TtlExtendTo stores state without expiry
	TtlThreshold  string `yaml:"ttlThreshold"  split_words:"true"`
	TtlExtendTo   string `yaml:"ttlExtendTo"   split_words:"true"`
	ApiPort       uint   `yaml:"apiPort"       split_words:"true"`
	MetricsPort   uint   `yaml:"metricsPort"   split_words:"true"`
	Tracing       bool   `yaml:"tracing"`
	TracingStdout bool   `yaml:"tracingStdout" split_words:"true"`
	Debug         bool   `yaml:"debug"`
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	timeout, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout: %w", err)
	}
	return timeout, nil
}

// TTLPolicy returns the parsed state lifetime policy
func (c *Config) TTLPolicy() (types.TTLPolicy, error) {
	var ret types.TTLPolicy
	if c.TtlExtendTo == "" {
		return ret, nil
	}
	extendTo, err := time.ParseDuration(c.TtlExtendTo)
	if err != nil {
		return ret, fmt.Errorf("invalid ttlExtendTo: %w", err)
	}
	var threshold time.Duration
	if c.TtlThreshold != "" {
		threshold, err = time.ParseDuration(c.TtlThreshold)
		if err != nil {
			return ret, fmt.Errorf("invalid ttlThreshold: %w", err)
		}
	}
	if threshold < 0 || extendTo < 0 {
		return ret, errors.New("ttl durations must not be negative")
	}
	if threshold > extendTo {
		return ret, fmt.Errorf(
			"ttlThreshold (%s) must not exceed ttlExtendTo (%s)",
			threshold,
			extendTo,
		)
	}
	ret.Threshold = threshold
	ret.ExtendTo = extendTo
	return ret, nil
}

func (c *Config) validate() error {
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.TTLPolicy(); err != nil {
		return err
	}
	if c.ApiPort > 65535 || c.MetricsPort > 65535 {
		return errors.New("ports must be in the range 0-65535")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:    ".scholarhub",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12799,
	}
}

var globalConfig = defaultConfig()

// findConfigFile returns the first config file found in the default
// search locations
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".scholarhub", "scholarhub.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/scholarhub/scholarhub.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process(envPrefix, globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := globalConfig.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return globalConfig, nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil {
		// Overlay config values onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			if name, ok := tempCfg.Database.Blob["plugin"].(string); ok {
				globalConfig.BlobPlugin = name
				delete(tempCfg.Database.Blob, "plugin")
			}
			mergePluginSection(pluginConfig, "blob", tempCfg.Database.Blob)
		}
		if tempCfg.Database.Metadata != nil {
			if name, ok := tempCfg.Database.Metadata["plugin"].(string); ok {
				globalConfig.MetadataPlugin = name
				delete(tempCfg.Database.Metadata, "plugin")
			}
			mergePluginSection(
				pluginConfig,
				"metadata",
				tempCfg.Database.Metadata,
			)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// mergePluginSection copies the per-plugin option maps from a database
// section into pluginConfig
func mergePluginSection(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]any,
) {
	typeConfig := make(map[string]map[string]any)
	for k, v := range section {
		switch val := v.(type) {
		case map[string]any:
			typeConfig[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			typeConfig[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType,
				k,
				v,
			)
		}
	}
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = typeConfig
	} else {
		maps.Copy(pluginConfig[pluginType], typeConfig)
	}
}

func GetConfig() *Config {
	return globalConfig
}
