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
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"

	"github.com/hpcsc/vault-setup/pkg/vault"
	infraerrors "github.com/hpcsc/vault-setup/shared/infrastructure/errors"
)

// Default values for provisioning.
const (
	// DefaultRoleTTL is the token TTL written on every auth role.
	DefaultRoleTTL = "1h"

	// DefaultRegion is the AWS region used when none is configured.
	DefaultRegion = "us-east-1"

	// WildcardBinding binds an auth role to every service account name or namespace.
	WildcardBinding = "*"
)

var (
	// STSCapabilities are granted on a role's credential issuance path.
	STSCapabilities = []string{"read", "update"}

	// KeyCapabilities are granted on each extra key path.
	KeyCapabilities = []string{"read", "list"}
)

// Generation is one namespace-isolated set of mounts.
type Generation struct {
	// Name identifies the generation (e.g. "v1").
	Name string `json:"name" yaml:"name"`

	// AuthMount is the Kubernetes auth method mount path.
	AuthMount string `json:"authMount" yaml:"auth_mount"`

	// SecretsMount is the AWS secrets engine mount path.
	SecretsMount string `json:"secretsMount" yaml:"secrets_mount"`
}

// DefaultGenerations returns v1 and v2, in that order.
func DefaultGenerations() []Generation {
	return []Generation{
		{Name: "v1", AuthMount: "kubernetes-v1", SecretsMount: "aws-v1"},
		{Name: "v2", AuthMount: "kubernetes-v2", SecretsMount: "aws-v2"},
	}
}

// Config contains all configuration for a provisioning run.
type Config struct {
	// Generations are provisioned in order. Empty means DefaultGenerations.
	Generations []Generation

	// AWS is the root configuration written to every AWS secrets engine.
	AWS vault.AWSRootConfig

	// KubernetesConfig optionally overrides discovered cluster details.
	KubernetesConfig *KubernetesClusterConfig

	// RoleTTL is the token TTL written on auth roles (default: "1h").
	RoleTTL string
}

// KubernetesClusterConfig overrides auto-discovered cluster details.
type KubernetesClusterConfig struct {
	// Host is the Kubernetes API server URL.
	Host string

	// CACert is the CA certificate for the Kubernetes API.
	CACert string

	// Issuer is the service account token issuer.
	Issuer string
}

// Identity is what a Kubernetes auth method needs to verify service
// account tokens.
type Identity struct {
	ReviewerJWT string
	CACert      string
	Issuer      string
	Host        string
}

// AuthConfig converts the identity into the auth method's config body.
func (i *Identity) AuthConfig() vault.KubernetesAuthConfig {
	return vault.KubernetesAuthConfig{
		Host:             i.Host,
		CACert:           i.CACert,
		TokenReviewerJWT: i.ReviewerJWT,
		Issuer:           i.Issuer,
	}
}

// WithDefaults returns a copy of Config with default values applied.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if len(cfg.Generations) == 0 {
		cfg.Generations = DefaultGenerations()
	} else {
		cfg.Generations = append([]Generation(nil), c.Generations...)
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = DefaultRegion
	}
	if cfg.RoleTTL == "" {
		cfg.RoleTTL = DefaultRoleTTL
	}
	return &cfg
}

// Validate checks the config before any remote call is made. Mount paths
// must be unique across generations so generations stay isolated.
func (c *Config) Validate() error {
	if len(c.Generations) == 0 {
		return infraerrors.NewValidationError("generations", "", "at least one generation is required")
	}

	names := make(map[string]bool)
	mounts := make(map[string]string)
	// Policy names share the vault role prefix, so comparing suffixes
	// catches collisions for every role.
	policies := make(map[string]string)
	for i, gen := range c.Generations {
		field := fmt.Sprintf("generations[%d]", i)
		if gen.Name == "" {
			return infraerrors.NewValidationError(field+".name", "", "name is required")
		}
		if names[gen.Name] {
			return infraerrors.NewValidationError(field+".name", gen.Name, "duplicate generation name")
		}
		names[gen.Name] = true

		for _, m := range []struct{ field, path, kind string }{
			{field + ".authMount", gen.AuthMount, "auth"},
			{field + ".secretsMount", gen.SecretsMount, "secrets"},
		} {
			path := vault.NormalizeMountPath(m.path)
			if path == "" {
				return infraerrors.NewValidationError(m.field, m.path, "mount path is required")
			}
			key := m.kind + ":" + path
			if owner, ok := mounts[key]; ok {
				return infraerrors.NewValidationError(m.field, m.path,
					fmt.Sprintf("mount already used by generation %q", owner))
			}
			mounts[key] = gen.Name
		}

		for _, name := range []string{PolicyName("", gen.SecretsMount), KeyPolicyName("", gen)} {
			if owner, ok := policies[name]; ok {
				return infraerrors.NewValidationError(field+".secretsMount", gen.SecretsMount,
					fmt.Sprintf("policy name %q collides with generation %q", strings.TrimPrefix(name, "-"), owner))
			}
			policies[name] = gen.Name
		}
	}

	if c.AWS.Region == "" {
		return infraerrors.NewValidationError("aws.region", "", "region is required")
	}
	return nil
}

// ValidateRoleArguments checks the arguments of a setup run.
func ValidateRoleArguments(vaultRole, iamRole string) error {
	if vaultRole == "" {
		return infraerrors.NewValidationError("vaultRole", "", "vault role is required")
	}
	if strings.ContainsAny(vaultRole, "/ ") {
		return infraerrors.NewValidationError("vaultRole", vaultRole, "must not contain slashes or spaces")
	}
	if iamRole == "" {
		return infraerrors.NewValidationError("iamRole", "", "IAM role ARN is required")
	}
	parsed, err := arn.Parse(iamRole)
	if err != nil {
		return infraerrors.NewValidationError("iamRole", iamRole, err.Error())
	}
	if parsed.Service != "iam" || !strings.HasPrefix(parsed.Resource, "role/") {
		return infraerrors.NewValidationError("iamRole", iamRole, "must be an IAM role ARN")
	}
	return nil
}

// PolicyName returns the policy granting vaultRole access to the STS path
// of secretsMount.
func PolicyName(vaultRole, secretsMount string) string {
	return vaultRole + "-" + strings.ReplaceAll(vault.NormalizeMountPath(secretsMount), "/", "-")
}

// KeyPolicyName returns the policy granting vaultRole read access to extra
// keys in generation.
func KeyPolicyName(vaultRole string, generation Generation) string {
	return vaultRole + "-" + generation.Name + "-keys"
}

// GenerationResult records what a run changed in one generation.
type GenerationResult struct {
	Generation Generation

	// AuthBackendCreated indicates the auth method was enabled by this run.
	AuthBackendCreated bool

	// SecretsEngineCreated indicates the secrets engine was mounted by this run.
	SecretsEngineCreated bool

	// PoliciesWritten lists the policies written, in order.
	PoliciesWritten []string

	// PoliciesAssociated lists policies newly attached to the auth role.
	PoliciesAssociated []string
}

// Result contains the results of a successful setup run.
type Result struct {
	VaultRole   string
	IAMRole     string
	Generations []GenerationResult
}

// Changed reports whether the run enabled a mount or changed a role binding.
// Policy documents, root configs and STS roles are rewritten on every run
// and do not count.
func (r *Result) Changed() bool {
	for _, g := range r.Generations {
		if g.AuthBackendCreated || g.SecretsEngineCreated || len(g.PoliciesAssociated) > 0 {
			return true
		}
	}
	return false
}
