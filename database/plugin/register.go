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

package plugin

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to plugin option environment variables
const EnvPrefix = "SCHOLARHUB"

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var pluginEntries []PluginEntry

// Register adds a plugin entry to the registry. Registering the same type
// and name twice replaces the earlier entry
func Register(pluginEntry PluginEntry) {
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginEntry.Type &&
			pluginEntries[i].Name == pluginEntry.Name {
			pluginEntries[i] = pluginEntry
			return
		}
	}
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered entries of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, entry := range pluginEntries {
		if entry.Type == pluginType {
			ret = append(ret, entry)
		}
	}
	return ret
}

// GetPlugin builds a new plugin instance from the current option values,
// or returns nil if no such plugin is registered
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	entry := getPluginEntry(pluginType, pluginName)
	if entry == nil || entry.NewFromOptionsFunc == nil {
		return nil
	}
	return entry.NewFromOptionsFunc()
}

func getPluginEntry(pluginType PluginType, pluginName string) *PluginEntry {
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginType &&
			pluginEntries[i].Name == pluginName {
			return &pluginEntries[i]
		}
	}
	return nil
}

func optionFlagName(entry PluginEntry, opt PluginOption) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(entry.Type),
		entry.Name,
		opt.Name,
	)
}

func optionEnvName(entry PluginEntry, opt PluginOption) string {
	return strings.ToUpper(
		strings.ReplaceAll(
			EnvPrefix+"_"+optionFlagName(entry, opt),
			"-",
			"_",
		),
	)
}

// PopulateCmdlineOptions adds a flag for every registered plugin option,
// named <type>-<plugin>-<option> (e.g. --blob-badger-data-dir)
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			flagName := optionFlagName(entry, opt)
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				def, ok2 := opt.DefaultValue.(string)
				if !ok || !ok2 {
					return fmt.Errorf("bad string option definition: %s", flagName)
				}
				fs.StringVar(dest, flagName, def, opt.Description)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				def, ok2 := opt.DefaultValue.(bool)
				if !ok || !ok2 {
					return fmt.Errorf("bad bool option definition: %s", flagName)
				}
				fs.BoolVar(dest, flagName, def, opt.Description)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				def, ok2 := opt.DefaultValue.(int)
				if !ok || !ok2 {
					return fmt.Errorf("bad int option definition: %s", flagName)
				}
				fs.IntVar(dest, flagName, def, opt.Description)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				def, ok2 := opt.DefaultValue.(uint64)
				if !ok || !ok2 {
					return fmt.Errorf("bad uint option definition: %s", flagName)
				}
				fs.Uint64Var(dest, flagName, def, opt.Description)
			default:
				return fmt.Errorf("unknown option type for %s", flagName)
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin options from the config file, keyed by
// plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, entry := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(entry.Type)]
		if !ok {
			continue
		}
		options, ok := typeConfig[entry.Name]
		if !ok {
			continue
		}
		for optName, value := range options {
			if err := SetPluginOption(entry.Type, entry.Name, optName, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from environment variables named
// SCHOLARHUB_<TYPE>_<PLUGIN>_<OPTION>
func ProcessEnvVars() error {
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			envName := optionEnvName(entry, opt)
			raw, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			var value any
			var err error
			switch opt.Type {
			case PluginOptionTypeString:
				value = raw
			case PluginOptionTypeBool:
				value, err = strconv.ParseBool(raw)
			case PluginOptionTypeInt:
				value, err = strconv.Atoi(raw)
			case PluginOptionTypeUint:
				value, err = strconv.ParseUint(raw, 10, 64)
			}
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", envName, err)
			}
			if err := opt.assign(value); err != nil {
				return err
			}
		}
	}
	return nil
}
