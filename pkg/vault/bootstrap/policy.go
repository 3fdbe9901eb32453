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
	infraerrors "github.com/hpcsc/vault-setup/shared/infrastructure/errors"
)

// AssociatePolicy attaches policyName to roleName on the generation's auth
// method. Policies already on the role are kept. If the policy is already
// attached nothing is written. Returns true if the role was written.
//
// The role is written whole, so bound service accounts and TTL are reset to
// wildcard bindings and the configured TTL whenever a policy is added.
func (p *Provisioner) AssociatePolicy(ctx context.Context, gen Generation, policyName, roleName string) (bool, error) {
	log := logger.WithGeneration(p.log, gen.Name).WithValues(
		logger.KeyVaultRole, roleName,
		logger.KeyVaultPolicy, policyName,
	)

	existing, err := p.store.ReadAuthRolePolicies(ctx, gen.AuthMount, roleName)
	if err != nil {
		return false, fmt.Errorf("failed to read auth role %s: %w", roleName, err)
	}

	if containsPolicy(existing, policyName) {
		log.Info("policy already associated")
		metrics.IncrementPolicyAssociation(false)
		return false, nil
	}

	policies := mergePolicies(existing, policyName)
	logger.WithOperation(log, logger.OpWrite).Info("associating policy", "policies", policies)

	role := vault.AuthRole{
		BoundServiceAccountNames:      []string{WildcardBinding},
		BoundServiceAccountNamespaces: []string{WildcardBinding},
		Policies:                      policies,
		TTL:                           p.config.RoleTTL,
	}
	if err := p.store.WriteAuthRole(ctx, gen.AuthMount, roleName, role); err != nil {
		return false, fmt.Errorf("failed to write auth role %s: %w", roleName, err)
	}
	metrics.IncrementVaultWrite(metrics.WriteAuthRole)
	metrics.IncrementPolicyAssociation(true)

	return true, nil
}

// WriteCapabilityPolicy writes policyName granting each path its
// capabilities. An existing policy of the same name is replaced, not merged.
// An empty mapping writes a policy with no rules.
func (p *Provisioner) WriteCapabilityPolicy(ctx context.Context, policyName string, capabilities map[string][]string) error {
	if policyName == "" {
		return infraerrors.NewValidationError("policyName", "", "policy name is required")
	}
	for path, caps := range capabilities {
		if err := vault.ValidatePath(path); err != nil {
			return infraerrors.NewValidationError("path", path, err.Error())
		}
		if err := vault.ValidateCapabilities(caps); err != nil {
			return infraerrors.NewValidationError("capabilities", path, err.Error())
		}
	}

	hcl := vault.GeneratePolicyHCL(vault.RulesFromCapabilities(capabilities), policyName)

	p.log.V(1).Info("writing policy",
		logger.KeyVaultPolicy, policyName,
		"paths", len(capabilities),
	)
	if err := p.store.WritePolicy(ctx, policyName, hcl); err != nil {
		return fmt.Errorf("failed to write policy %s: %w", policyName, err)
	}
	metrics.IncrementVaultWrite(metrics.WritePolicy)

	return nil
}

func containsPolicy(policies []string, name string) bool {
	for _, p := range policies {
		if p == name {
			return true
		}
	}
	return false
}

// mergePolicies returns existing with duplicates removed and name appended.
func mergePolicies(existing []string, name string) []string {
	seen := make(map[string]bool, len(existing)+1)
	merged := make([]string, 0, len(existing)+1)
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		merged = append(merged, p)
	}
	for _, p := range existing {
		add(p)
	}
	add(name)
	return merged
}
