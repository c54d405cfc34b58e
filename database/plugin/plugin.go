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

import "fmt"

type Plugin interface {
	Start() error
	Stop() error
}

// ErrorPlugin is a plugin that always returns an error on Start()
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin creates a new error plugin that returns the given error on Start()
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin gets a plugin from the registry and starts it
func StartPlugin(pluginType PluginType, pluginName string) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}

// SetPluginOption sets the value of a named option for a plugin entry. This
// is used by callers that need to programmatically override plugin defaults
// (for example to set data-dir before starting a plugin). It returns an error
// if the plugin is not found or if the value type is incompatible. Unknown
// option names are ignored, since not every implementation has every option.
// NOTE: this must be called before any plugin instantiation, as it writes
// directly into the option destinations without synchronization.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	entry := getPluginEntry(pluginType, pluginName)
	if entry == nil {
		return fmt.Errorf(
			"plugin %s of type %s not found",
			pluginName,
			PluginTypeName(pluginType),
		)
	}
	for _, opt := range entry.Options {
		if opt.Name != optionName {
			continue
		}
		return opt.assign(value)
	}
	return nil
}

// assign performs a type-checked assignment into the option's Dest pointer
func (o PluginOption) assign(value any) error {
	if o.Dest == nil {
		return fmt.Errorf("nil destination for option %s", o.Name)
	}
	switch o.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf(
				"invalid type for option %s: expected string",
				o.Name,
			)
		}
		dest, ok := o.Dest.(*string)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination for option %s: expected *string",
				o.Name,
			)
		}
		*dest = v
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf(
				"invalid type for option %s: expected bool",
				o.Name,
			)
		}
		dest, ok := o.Dest.(*bool)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination for option %s: expected *bool",
				o.Name,
			)
		}
		*dest = v
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf(
				"invalid type for option %s: expected int",
				o.Name,
			)
		}
		dest, ok := o.Dest.(*int)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination for option %s: expected *int",
				o.Name,
			)
		}
		*dest = v
	case PluginOptionTypeUint:
		var v uint64
		switch tv := value.(type) {
		case uint64:
			v = tv
		case int:
			if tv < 0 {
				return fmt.Errorf(
					"invalid value for option %s: negative int",
					o.Name,
				)
			}
			v = uint64(tv)
		default:
			return fmt.Errorf(
				"invalid type for option %s: expected uint64 or int",
				o.Name,
			)
		}
		dest, ok := o.Dest.(*uint64)
		if !ok || dest == nil {
			return fmt.Errorf(
				"invalid destination for option %s: expected *uint64",
				o.Name,
			)
		}
		*dest = v
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			o.Type,
			o.Name,
		)
	}
	return nil
}
