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

// EnsureSecretsEngine mounts the generation's AWS secrets engine if needed
// and writes its root configuration. The root configuration is written on
// every call, so credential changes are picked up by rerunning.
func (p *Provisioner) EnsureSecretsEngine(ctx context.Context, gen Generation) (bool, error) {
	log := logger.WithGeneration(p.log, gen.Name).WithValues(logger.KeyMount, gen.SecretsMount)

	mounts, err := p.store.ListSecretsMounts(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list secrets engines: %w", err)
	}

	created := false
	if vault.HasMount(mounts, gen.SecretsMount) {
		log.V(1).Info("secrets engine already enabled")
	} else {
		logger.WithOperation(log, logger.OpEnable).Info("enabling secrets engine", "type", vault.SecretsEngineTypeAWS)
		description := fmt.Sprintf("AWS credentials (%s)", gen.Name)
		if err := p.store.EnableSecretsEngine(ctx, gen.SecretsMount, vault.SecretsEngineTypeAWS, description); err != nil {
			if vault.IsPathInUse(err) {
				return false, fmt.Errorf("secrets mount %s was enabled by a concurrent run: %w", gen.SecretsMount, err)
			}
			return false, fmt.Errorf("failed to enable secrets engine: %w", err)
		}
		metrics.IncrementMountCreated(vault.SecretsEngineTypeAWS)
		created = true
	}

	logger.WithOperation(log, logger.OpWrite).Info("writing root config",
		logger.KeyVaultPath, vault.AWSRootConfigPath(gen.SecretsMount),
		"region", p.config.AWS.Region,
		"customEndpoint", p.config.AWS.STSEndpoint != "" || p.config.AWS.IAMEndpoint != "",
	)
	if err := p.store.WriteAWSRootConfig(ctx, gen.SecretsMount, p.config.AWS); err != nil {
		return created, fmt.Errorf("failed to write root config: %w", err)
	}
	metrics.IncrementVaultWrite(metrics.WriteRootConfig)

	return created, nil
}
