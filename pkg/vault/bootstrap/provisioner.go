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

package bootstrap

import (
	"github.com/go-logr/logr"
)

// Provisioner holds the individual provisioning operations. Each operation
// checks current state before mutating it, so calling it again is safe.
// The Manager sequences them; they are exported for callers that need a
// single step.
type Provisioner struct {
	store    StoreClient
	identity IdentitySource
	config   *Config
	log      logr.Logger
}

// NewProvisioner creates a Provisioner. Defaults are applied to config.
// identity may be nil when every auth method is known to exist already.
func NewProvisioner(store StoreClient, identity IdentitySource, config *Config, log logr.Logger) *Provisioner {
	if config == nil {
		config = &Config{}
	}
	return &Provisioner{
		store:    store,
		identity: identity,
		config:   config.WithDefaults(),
		log:      log.WithName("provisioner"),
	}
}

// Config returns the effective configuration.
func (p *Provisioner) Config() *Config {
	return p.config
}
