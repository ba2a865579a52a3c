// Copyright 2015 Google Inc. All Rights Reserved.
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
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jacobsa/lowfuse"
	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings for mounting a sample file system. Precedence, from highest to
// lowest: flags that were set explicitly, LOWFUSE_* environment variables,
// the config file, flag defaults.
type Config struct {
	// Which sample to mount.
	Type string `mapstructure:"type" validate:"required,oneof=hello memfs loopback statfs"`

	MountPoint string `mapstructure:"mount_point" validate:"required"`

	FSName   string `mapstructure:"fsname"`
	ReadOnly bool   `mapstructure:"read_only"`

	// Send FUSE debugging messages to stderr.
	Debug bool `mapstructure:"debug"`

	// If set, serve Prometheus metrics on this address at /metrics.
	MetricsListen string `mapstructure:"metrics_listen" validate:"omitempty,hostname_port"`

	// Operation names to expose, as accepted by lowfuse.ParseOpFlags. Empty
	// means everything the sample implements.
	Ops []string `mapstructure:"ops"`

	// Per-type settings, decoded once the type is known.
	Loopback map[string]any `mapstructure:"loopback"`
	Statfs   map[string]any `mapstructure:"statfs"`
}

// Settings for the loopback sample.
type LoopbackConfig struct {
	Root string `mapstructure:"root" validate:"required,dir"`
}

// Settings for the statfs sample: the canned statfs(2) response.
type StatfsConfig struct {
	fuseops.StatFS `mapstructure:",squash"`
}

var validate = validator.New()

// Register the flags understood by loadConfig.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("type", "", "Sample to mount: hello, memfs, loopback or statfs.")
	fs.String("config", "", "Path to a config file.")
	fs.String("fsname", "", "Name shown in /proc/mounts.")
	fs.Bool("read_only", false, "Mount read-only.")
	fs.Bool("debug", false, "Write FUSE debugging messages to stderr.")
	fs.String("metrics_listen", "", "Address on which to serve /metrics.")
	fs.StringSlice("ops", nil, "Operations to expose (default: all the sample implements).")
	fs.String("loopback_root", "", "Directory mirrored by the loopback sample.")
}

// The viper key bound to each flag.
var flagKeys = map[string]string{
	"type":           "type",
	"fsname":         "fsname",
	"read_only":      "read_only",
	"debug":          "debug",
	"metrics_listen": "metrics_listen",
	"ops":            "ops",
	"loopback_root":  "loopback.root",
}

// Build the configuration from parsed flags, LOWFUSE_* environment variables
// and the config file named by --config, if any. The mount point is the
// first positional argument.
func loadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LOWFUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("BindPFlag(%q): %w", name, err)
		}
	}

	v.SetDefault("mount_point", "")
	if fs.NArg() > 0 {
		v.Set("mount_point", fs.Arg(0))
	}

	configPath, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if _, err := cfg.Mask(lowfuse.AllOps); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Mask restricts the operations implemented by a sample to those named by
// c.Ops.
func (c *Config) Mask(implemented lowfuse.OpFlag) (lowfuse.OpFlag, error) {
	if len(c.Ops) == 0 {
		return implemented, nil
	}

	var names []string
	for _, op := range c.Ops {
		names = append(names, strings.Split(op, ",")...)
	}

	f, err := lowfuse.ParseOpFlags(names)
	if err != nil {
		return 0, fmt.Errorf("ops: %w", err)
	}

	return implemented & f, nil
}

// LoopbackConfig decodes and validates the loopback section.
func (c *Config) LoopbackConfig() (*LoopbackConfig, error) {
	var lc LoopbackConfig
	if err := mapstructure.Decode(c.Loopback, &lc); err != nil {
		return nil, fmt.Errorf("failed to decode loopback config: %w", err)
	}

	if err := validate.Struct(&lc); err != nil {
		return nil, fmt.Errorf("loopback: %w", err)
	}

	return &lc, nil
}

// StatfsConfig decodes the statfs section. Numbers in config files and the
// environment arrive in various types, so decoding is weakly typed.
func (c *Config) StatfsConfig() (*StatfsConfig, error) {
	var sc StatfsConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &sc,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(c.Statfs); err != nil {
		return nil, fmt.Errorf("failed to decode statfs config: %w", err)
	}

	return &sc, nil
}
