// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the demo CLI's configuration from an optional YAML
// file overlaid with environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the top-level configuration for cmd/rmmengine.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
}

// LoggingConfig controls rmmlog's default logger.
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOGGING_LEVEL"`
}

// EngineConfig seeds the demo engine instance.
type EngineConfig struct {
	WrappedNativeSymbol string `yaml:"wrappedNativeSymbol" envconfig:"ENGINE_WRAPPED_NATIVE_SYMBOL"`
	AssetDecimals       uint8  `yaml:"assetDecimals" envconfig:"ENGINE_ASSET_DECIMALS"`
	QuoteDecimals       uint8  `yaml:"quoteDecimals" envconfig:"ENGINE_QUOTE_DECIMALS"`
}

// globalConfig is a singleton seeded with defaults, overlaid by Load.
var globalConfig = &Config{
	Logging: LoggingConfig{
		Level: "info",
	},
	Engine: EngineConfig{
		WrappedNativeSymbol: "WNATIVE",
		AssetDecimals:       18,
		QuoteDecimals:       6,
	},
}

// Load overlays an optional YAML file, then environment variables, onto the
// default configuration.
func Load(configFile string) (*Config, error) {
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %s", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %s", err)
		}
	}
	if err := envconfig.Process("rmm", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %s", err)
	}
	return globalConfig, nil
}

// GetConfig returns the process-wide config instance.
func GetConfig() *Config {
	return globalConfig
}
