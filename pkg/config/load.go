/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path, applies defaults and
// environment overrides, and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := parse(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parse decodes YAML, rejecting unknown fields. An empty document is valid.
func parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Unparseable
// values are errors rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("VAULT_ADDR"); val != "" {
		cfg.Vault.Address = val
	}
	if val := os.Getenv("VAULT_TOKEN"); val != "" {
		cfg.Vault.Token = val
	}
	if val := os.Getenv("VAULT_SETUP_AUTH_METHOD"); val != "" {
		cfg.Vault.Auth.Method = val
	}
	if val := os.Getenv("VAULT_CACERT"); val != "" {
		cfg.Vault.CACert = val
	}
	if val := os.Getenv("VAULT_SKIP_VERIFY"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid VAULT_SKIP_VERIFY %q: %w", val, err)
		}
		cfg.Vault.SkipVerify = b
	}
	if val := os.Getenv("VAULT_CLIENT_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid VAULT_CLIENT_TIMEOUT %q: %w", val, err)
		}
		cfg.Vault.Timeout = d
	}

	if val := os.Getenv("AWS_DEFAULT_REGION"); val != "" {
		cfg.AWS.Region = val
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		cfg.AWS.Region = val
	}
	if val := os.Getenv("AWS_ACCESS_KEY_ID"); val != "" {
		cfg.AWS.AccessKeyID = val
	}
	if val := os.Getenv("AWS_SECRET_ACCESS_KEY"); val != "" {
		cfg.AWS.SecretAccessKey = val
	}
	if val := os.Getenv("VAULT_SETUP_AWS_ENDPOINT"); val != "" {
		cfg.AWS.Endpoint = val
	}

	if val := os.Getenv("VAULT_SETUP_K8S_HOST"); val != "" {
		cfg.Kubernetes.Host = val
	}
	return nil
}
