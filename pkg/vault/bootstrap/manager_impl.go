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
	"time"

	"github.com/go-logr/logr"

	"github.com/hpcsc/vault-setup/pkg/logger"
	"github.com/hpcsc/vault-setup/pkg/metrics"
)

// managerImpl implements Manager.
type managerImpl struct {
	provisioner *Provisioner
	log         logr.Logger
}

// NewManager creates a new provisioning Manager.
func NewManager(store StoreClient, identity IdentitySource, config *Config, log logr.Logger) Manager {
	return &managerImpl{
		provisioner: NewProvisioner(store, identity, config, log),
		log:         log.WithName("setup-manager"),
	}
}

// Setup performs the full provisioning sequence. On failure the returned
// Result describes the generations reached before the failing step.
func (m *managerImpl) Setup(ctx context.Context, vaultRole, iamRole string, extraKeys ...string) (*Result, error) {
	start := time.Now()
	result, err := m.setup(ctx, vaultRole, iamRole, extraKeys)
	metrics.ObserveSetupRun(err == nil, time.Since(start))
	return result, err
}

func (m *managerImpl) setup(ctx context.Context, vaultRole, iamRole string, extraKeys []string) (*Result, error) {
	config := m.provisioner.Config()

	if err := ValidateRoleArguments(vaultRole, iamRole); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	keys, err := NormalizeKeys(extraKeys)
	if err != nil {
		return nil, err
	}

	log := m.log.WithValues(logger.KeyVaultRole, vaultRole, logger.KeyIAMRole, iamRole)
	ctx = logger.IntoContext(ctx, log)
	start := time.Now()

	log.Info("starting setup",
		"generations", len(config.Generations),
		"extraKeys", len(keys),
	)

	result := &Result{
		VaultRole:   vaultRole,
		IAMRole:     iamRole,
		Generations: make([]GenerationResult, 0, len(config.Generations)),
	}

	for _, gen := range config.Generations {
		result.Generations = append(result.Generations, GenerationResult{Generation: gen})
		genResult := &result.Generations[len(result.Generations)-1]

		if err := m.provisionGeneration(ctx, gen, vaultRole, iamRole, genResult); err != nil {
			return result, fmt.Errorf("generation %s: %w", gen.Name, err)
		}
	}

	if len(keys) > 0 {
		for i, gen := range config.Generations {
			genResult := &result.Generations[i]
			err := m.runStep(ctx, gen, metrics.StepKeyPolicy, func() error {
				associated, err := m.provisioner.EnsureKeyPolicy(ctx, gen, vaultRole, keys)
				if err != nil {
					return err
				}
				policyName := KeyPolicyName(vaultRole, gen)
				genResult.PoliciesWritten = append(genResult.PoliciesWritten, policyName)
				if associated {
					genResult.PoliciesAssociated = append(genResult.PoliciesAssociated, policyName)
				}
				return nil
			})
			if err != nil {
				return result, fmt.Errorf("generation %s: failed to grant key access: %w", gen.Name, err)
			}
		}
	}

	logger.WithDuration(log, time.Since(start)).Info("setup completed successfully", "changed", result.Changed())
	return result, nil
}

// provisionGeneration runs the auth backend, secrets engine and role steps
// of one generation, stopping at the first failure.
func (m *managerImpl) provisionGeneration(
	ctx context.Context,
	gen Generation,
	vaultRole, iamRole string,
	genResult *GenerationResult,
) error {
	err := m.runStep(ctx, gen, metrics.StepAuthBackend, func() error {
		created, err := m.provisioner.EnsureAuthBackend(ctx, gen)
		genResult.AuthBackendCreated = created
		return err
	})
	if err != nil {
		return err
	}

	err = m.runStep(ctx, gen, metrics.StepSecretsEngine, func() error {
		created, err := m.provisioner.EnsureSecretsEngine(ctx, gen)
		genResult.SecretsEngineCreated = created
		return err
	})
	if err != nil {
		return err
	}

	return m.runStep(ctx, gen, metrics.StepRole, func() error {
		associated, err := m.provisioner.EnsureRole(ctx, gen, vaultRole, iamRole)
		if err != nil {
			return err
		}
		policyName := PolicyName(vaultRole, gen.SecretsMount)
		genResult.PoliciesWritten = append(genResult.PoliciesWritten, policyName)
		if associated {
			genResult.PoliciesAssociated = append(genResult.PoliciesAssociated, policyName)
		}
		return nil
	})
}

// runStep times and records a single step.
func (m *managerImpl) runStep(ctx context.Context, gen Generation, step string, fn func() error) error {
	stepLog := logger.NewStepLogger(ctx, step, gen.Name)
	stepLog.LogStepStart()

	err := fn()
	metrics.IncrementStep(gen.Name, step, err == nil)
	if err != nil {
		stepLog.LogStepError(err)
		return err
	}

	stepLog.LogStepSuccess()
	return nil
}

// Ensure managerImpl implements Manager.
var _ Manager = (*managerImpl)(nil)
