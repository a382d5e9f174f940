// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ouroboros "github.com/blinklabs-io/gouroboros"
	"github.com/blinklabs-io/snowdrift/blockfrost"
	"github.com/blinklabs-io/snowdrift/transport"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "snowdrift.config"

const (
	DefaultNetwork     = "mainnet"
	DefaultTimeout     = "120s"
	DefaultPageSize    = 100
	DefaultMaxPages    = 1000
	DefaultConcurrency = 4
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

// RunMode represents the operational mode of snowdrift
type RunMode string

const (
	RunModeNormal RunMode = "normal" // Validated TLS against a public indexer (default)
	RunModeDev    RunMode = "dev"    // Allows test-only settings such as skipping TLS validation
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeNormal, RunModeDev, "":
		return true
	default:
		return false
	}
}

// IsDevMode returns true if the mode enables test-only behaviors
func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

type tempConfig struct {
	// Decoded onto the current config so omitted keys keep
	// their defaults
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	Network               string   `yaml:"network"`
	ProjectId             string   `yaml:"projectId"             envconfig:"BLOCKFROST_PROJECT_ID"`
	BaseUrl               string   `yaml:"baseUrl"                                                 split_words:"true"`
	Timeout               string   `yaml:"timeout"`
	TlsInsecureSkipVerify bool     `yaml:"tlsInsecureSkipVerify"                                   split_words:"true"`
	TlsCaFile             string   `yaml:"tlsCaFile"                                               split_words:"true"`
	PageSize              int      `yaml:"pageSize"                                                split_words:"true"`
	MaxPages              int      `yaml:"maxPages"                                                split_words:"true"`
	Concurrency           int      `yaml:"concurrency"`
	MetricsPort           uint     `yaml:"metricsPort"                                             split_words:"true"`
	Tracing               bool     `yaml:"tracing"`
	TracingStdout         bool     `yaml:"tracingStdout"                                           split_words:"true"`
	RunMode               RunMode  `yaml:"runMode"                                                 split_words:"true"`
	Addresses             []string `yaml:"addresses"`
}

// TimeoutDuration returns the parsed request timeout. Call it
// only on a validated config.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return transport.DefaultTimeout
	}
	return d
}

// TLSMode returns the certificate validation mode for the
// transport.
func (c *Config) TLSMode() transport.TLSMode {
	if c.TlsInsecureSkipVerify {
		return transport.TLSInsecureSkipVerify
	}
	return transport.TLSVerify
}

// IndexerURL returns the base URL of the indexer, preferring
// the explicit override.
func (c *Config) IndexerURL() (string, error) {
	if c.BaseUrl != "" {
		return c.BaseUrl, nil
	}
	return blockfrost.BaseURL(c.Network)
}

// NetworkMagic returns the magic of the configured network.
func (c *Config) NetworkMagic() (uint32, error) {
	network, ok := ouroboros.NetworkByName(c.Network)
	if !ok {
		return 0, fmt.Errorf("unknown network: %s", c.Network)
	}
	return network.NetworkMagic, nil
}

func (c *Config) validate() error {
	if !c.RunMode.Valid() {
		return fmt.Errorf(
			"invalid runMode: %q (must be 'normal' or 'dev')",
			c.RunMode,
		)
	}
	if c.RunMode == "" {
		c.RunMode = RunModeNormal
	}
	if c.TlsInsecureSkipVerify && !c.RunMode.IsDevMode() {
		return errors.New(
			"tlsInsecureSkipVerify is only allowed with runMode 'dev'",
		)
	}
	if _, ok := ouroboros.NetworkByName(c.Network); !ok {
		return fmt.Errorf("unknown network: %s", c.Network)
	}
	if _, err := c.IndexerURL(); err != nil {
		return fmt.Errorf(
			"no indexer URL for network %s, set baseUrl: %w",
			c.Network,
			err,
		)
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid timeout %q: must be positive", c.Timeout)
	}
	if c.PageSize < 1 || c.PageSize > blockfrost.MaxPaginationCount {
		return fmt.Errorf(
			"invalid pageSize %d: must be between 1 and %d",
			c.PageSize,
			blockfrost.MaxPaginationCount,
		)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("invalid maxPages %d: must be at least 1", c.MaxPages)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf(
			"invalid concurrency %d: must be at least 1",
			c.Concurrency,
		)
	}
	return nil
}

var globalConfig = &Config{
	Network:     DefaultNetwork,
	Timeout:     DefaultTimeout,
	PageSize:    DefaultPageSize,
	MaxPages:    DefaultMaxPages,
	Concurrency: DefaultConcurrency,
	RunMode:     RunModeNormal,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.snowdrift/snowdrift.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".snowdrift", "snowdrift.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/snowdrift/snowdrift.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/snowdrift/snowdrift.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		// A top-level config section takes precedence over a flat file
		if tempCfg.Config.Kind != 0 {
			err = tempCfg.Config.Decode(globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	// Process environment variables
	err := envconfig.Process("snowdrift", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
