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
	"context"
	"fmt"

	"github.com/hpcsc/vault-setup/pkg/logger"
	"github.com/hpcsc/vault-setup/pkg/metrics"
	"github.com/hpcsc/vault-setup/pkg/vault"
)

// EnsureAuthBackend enables and configures the generation's Kubernetes auth
// method if it is not enabled yet. An existing mount is left untouched and
// the identity source is not consulted. Returns true if the mount was
// created by this call.
func (p *Provisioner) EnsureAuthBackend(ctx context.Context, gen Generation) (bool, error) {
	log := logger.WithGeneration(p.log, gen.Name).WithValues(logger.KeyMount, gen.AuthMount)

	mounts, err := p.store.ListAuthMounts(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list auth mounts: %w", err)
	}

	if vault.HasMount(mounts, gen.AuthMount) {
		log.Info("auth backend already enabled")
		return false, nil
	}

	if p.identity == nil {
		return false, fmt.Errorf("auth mount %s is missing and no identity source is configured", gen.AuthMount)
	}

	identity, err := p.identity.Identity(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to resolve cluster identity: %w", err)
	}

	logger.WithOperation(log, logger.OpEnable).Info("enabling auth backend", "type", vault.AuthTypeKubernetes)
	description := fmt.Sprintf("Kubernetes auth (%s)", gen.Name)
	if err := p.store.EnableAuth(ctx, gen.AuthMount, vault.AuthTypeKubernetes, description); err != nil {
		if vault.IsPathInUse(err) {
			return false, fmt.Errorf("auth mount %s was enabled by a concurrent run: %w", gen.AuthMount, err)
		}
		return false, fmt.Errorf("failed to enable auth backend: %w", err)
	}
	metrics.IncrementMountCreated(vault.AuthTypeKubernetes)

	logger.WithOperation(log, logger.OpWrite).Info("configuring auth backend",
		"host", identity.Host,
		"issuer", identity.Issuer,
		"hasCACert", identity.CACert != "",
	)
	if err := p.store.WriteKubernetesAuthConfig(ctx, gen.AuthMount, identity.AuthConfig()); err != nil {
		return true, fmt.Errorf("failed to configure auth backend: %w", err)
	}
	metrics.IncrementVaultWrite(metrics.WriteAuthConfig)

	return true, nil
}
