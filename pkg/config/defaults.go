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
	"github.com/hpcsc/vault-setup/pkg/vault"
	"github.com/hpcsc/vault-setup/pkg/vault/bootstrap"
)

// Default values for configuration fields.
const (
	DefaultVaultAddress = "http://127.0.0.1:8200"
	DefaultVaultTimeout = vault.DefaultTimeout
	DefaultRegion       = bootstrap.DefaultRegion
	DefaultRoleTTL      = bootstrap.DefaultRoleTTL
)

// ApplyDefaults fills in zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Vault.Address == "" {
		cfg.Vault.Address = DefaultVaultAddress
	}
	if cfg.Vault.Auth.Method == "" {
		cfg.Vault.Auth.Method = AuthMethodToken
	}
	if cfg.Vault.Timeout == 0 {
		cfg.Vault.Timeout = DefaultVaultTimeout
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = DefaultRegion
	}
	if len(cfg.Generations) == 0 {
		cfg.Generations = bootstrap.DefaultGenerations()
	}
	if cfg.RoleTTL == "" {
		cfg.RoleTTL = DefaultRoleTTL
	}
}
