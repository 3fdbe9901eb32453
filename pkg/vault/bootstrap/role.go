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
	"sort"

	"github.com/hpcsc/vault-setup/pkg/logger"
	"github.com/hpcsc/vault-setup/pkg/metrics"
	"github.com/hpcsc/vault-setup/pkg/vault"
	infraerrors "github.com/hpcsc/vault-setup/shared/infrastructure/errors"
)

// EnsureRole grants vaultRole access to STS credentials for iamRole in the
// generation: it writes the access policy, attaches it to the auth role and
// writes the STS role. The STS role is rewritten on every call. Returns
// true if the policy was newly attached.
func (p *Provisioner) EnsureRole(ctx context.Context, gen Generation, vaultRole, iamRole string) (bool, error) {
	policyName := PolicyName(vaultRole, gen.SecretsMount)
	stsPath := vault.STSCredentialsPath(gen.SecretsMount, vaultRole)

	capabilities := map[string][]string{stsPath: STSCapabilities}
	if err := p.WriteCapabilityPolicy(ctx, policyName, capabilities); err != nil {
		return false, err
	}

	associated, err := p.AssociatePolicy(ctx, gen, policyName, vaultRole)
	if err != nil {
		return false, err
	}

	logger.WithOperation(logger.WithGeneration(p.log, gen.Name), logger.OpWrite).Info("writing sts role",
		logger.KeyVaultPath, vault.STSRoleDefinitionPath(gen.SecretsMount, vaultRole),
		logger.KeyIAMRole, iamRole,
	)
	role := vault.STSRole{
		RoleARNs:       []string{iamRole},
		CredentialType: vault.CredentialTypeAssumedRole,
	}
	if err := p.store.WriteSTSRole(ctx, gen.SecretsMount, vaultRole, role); err != nil {
		return associated, fmt.Errorf("failed to write sts role %s: %w", vaultRole, err)
	}
	metrics.IncrementVaultWrite(metrics.WriteSTSRole)

	return associated, nil
}

// EnsureKeyPolicy grants vaultRole read and list on every key path in the
// generation and attaches the policy. Returns true if the policy was newly
// attached.
func (p *Provisioner) EnsureKeyPolicy(ctx context.Context, gen Generation, vaultRole string, keys []string) (bool, error) {
	capabilities := make(map[string][]string, len(keys))
	for _, key := range keys {
		capabilities[key] = KeyCapabilities
	}

	policyName := KeyPolicyName(vaultRole, gen)
	if err := p.WriteCapabilityPolicy(ctx, policyName, capabilities); err != nil {
		return false, err
	}

	return p.AssociatePolicy(ctx, gen, policyName, vaultRole)
}

// NormalizeKeys validates key paths and returns them sorted and deduplicated.
func NormalizeKeys(keys []string) ([]string, error) {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := vault.ValidatePath(key); err != nil {
			return nil, infraerrors.NewValidationError("key", key, err.Error())
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}
