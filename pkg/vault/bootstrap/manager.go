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

	"github.com/hpcsc/vault-setup/pkg/vault"
)

// Manager provisions Vault for a workload role across all generations.
//
// # Responsibilities
//
//   - Enable and configure a Kubernetes auth method per generation
//   - Mount and configure an AWS secrets engine per generation
//   - Write the STS role and the policy granting access to it
//   - Attach policies to the workload's auth role without dropping existing ones
//   - Optionally grant read access to extra key paths
//
// # Thread Safety
//
// Runs against the same Vault must be serialized by the caller. Existence
// checks and the writes that follow them are not atomic.
//
// # Usage
//
//	manager := NewManager(vaultClient, identitySource, config, log)
//	result, err := manager.Setup(ctx, "payments", "arn:aws:iam::123456789012:role/payments")
//	if err != nil {
//	    // nothing after the failing step ran; rerunning is safe
//	    return err
//	}
type Manager interface {
	// Setup provisions every generation in order and stops at the first
	// failure. Running it again against the same Vault converges.
	Setup(ctx context.Context, vaultRole, iamRole string, extraKeys ...string) (*Result, error)
}

// StoreClient is the Vault client interface needed for provisioning.
// This allows for mocking in tests. Implemented by *vault.Client.
type StoreClient interface {
	// ListAuthMounts returns the enabled auth methods.
	ListAuthMounts(ctx context.Context) ([]vault.Mount, error)

	// EnableAuth enables an auth method at the given path.
	EnableAuth(ctx context.Context, path, methodType, description string) error

	// WriteKubernetesAuthConfig writes the Kubernetes auth configuration.
	WriteKubernetesAuthConfig(ctx context.Context, mount string, cfg vault.KubernetesAuthConfig) error

	// ReadAuthRolePolicies returns the policies attached to an auth role,
	// nil if the role does not exist.
	ReadAuthRolePolicies(ctx context.Context, mount, roleName string) ([]string, error)

	// WriteAuthRole creates or replaces a Kubernetes auth role.
	WriteAuthRole(ctx context.Context, mount, roleName string, role vault.AuthRole) error

	// ListSecretsMounts returns the enabled secrets engines.
	ListSecretsMounts(ctx context.Context) ([]vault.Mount, error)

	// EnableSecretsEngine mounts a secrets engine at the given path.
	EnableSecretsEngine(ctx context.Context, path, engineType, description string) error

	// WriteAWSRootConfig overwrites an AWS secrets engine's root config.
	WriteAWSRootConfig(ctx context.Context, mount string, cfg vault.AWSRootConfig) error

	// WriteSTSRole creates or replaces an AWS secrets engine role.
	WriteSTSRole(ctx context.Context, mount, roleName string, role vault.STSRole) error

	// WritePolicy creates or replaces an ACL policy.
	WritePolicy(ctx context.Context, name, hcl string) error
}

// IdentitySource provides what a Kubernetes auth method needs to trust the
// cluster. It is only consulted when an auth method is first enabled.
type IdentitySource interface {
	Identity(ctx context.Context) (*Identity, error)
}

// Ensure the Vault client satisfies StoreClient.
var _ StoreClient = (*vault.Client)(nil)
