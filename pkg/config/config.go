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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hpcsc/vault-setup/pkg/vault"
	"github.com/hpcsc/vault-setup/pkg/vault/auth"
	"github.com/hpcsc/vault-setup/pkg/vault/bootstrap"
	"github.com/hpcsc/vault-setup/pkg/vault/token"
)

// Config is the complete vault-setup configuration.
type Config struct {
	Vault       VaultConfig            `yaml:"vault"`
	AWS         AWSConfig              `yaml:"aws"`
	Kubernetes  KubernetesConfig       `yaml:"kubernetes"`
	Generations []bootstrap.Generation `yaml:"generations"`

	// RoleTTL is the token TTL written on auth roles.
	RoleTTL string `yaml:"role_ttl"`
}

// VaultConfig configures the connection to Vault.
type VaultConfig struct {
	Address string `yaml:"address"`

	// Token authenticates the run. TokenFile is read when Token is empty.
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`

	CACert     string        `yaml:"ca_cert"`
	SkipVerify bool          `yaml:"skip_verify"`
	Timeout    time.Duration `yaml:"timeout"`

	Auth VaultAuthConfig `yaml:"auth"`
}

// Login methods for VaultAuthConfig.Method.
const (
	AuthMethodToken      = "token"
	AuthMethodKubernetes = "kubernetes"
	AuthMethodAWS        = "aws"
)

// VaultAuthConfig selects how the run authenticates to Vault. The token
// method uses Token or TokenFile; the others log in to an auth mount.
type VaultAuthConfig struct {
	Method string `yaml:"method"`
	Mount  string `yaml:"mount"`
	Role   string `yaml:"role"`

	// TokenFile is the service account token presented by the kubernetes method.
	TokenFile string `yaml:"token_file"`

	// AWS method settings for the signed GetCallerIdentity request.
	Region      string `yaml:"region"`
	STSEndpoint string `yaml:"sts_endpoint"`
	IAMServerID string `yaml:"iam_server_id"`
}

// AWSConfig holds what is written to each AWS secrets engine's root config.
type AWSConfig struct {
	Region string `yaml:"region"`

	// Static root credentials. When both are empty the AWS SDK default
	// credential chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// VerifyCredentials calls STS GetCallerIdentity with the resolved
	// credentials before anything is written to Vault.
	VerifyCredentials bool `yaml:"verify_credentials"`

	// Endpoint overrides both IAM and STS endpoints, e.g. for LocalStack.
	Endpoint string `yaml:"endpoint"`
}

// KubernetesConfig overrides discovered cluster details and selects the
// token reviewer.
type KubernetesConfig struct {
	Host       string `yaml:"host"`
	CACertFile string `yaml:"ca_cert_file"`
	Issuer     string `yaml:"issuer"`

	Reviewer ReviewerConfig `yaml:"reviewer"`
}

// ReviewerConfig selects where the token_reviewer_jwt comes from.
type ReviewerConfig struct {
	// TokenFile is a mounted service account token.
	TokenFile string `yaml:"token_file"`

	// ServiceAccount mints a token through the TokenRequest API instead.
	Namespace      string `yaml:"namespace"`
	ServiceAccount string `yaml:"service_account"`

	Duration time.Duration `yaml:"duration"`
}

// HasStaticCredentials reports whether root credentials are configured
// directly rather than resolved from the AWS SDK.
func (c *AWSConfig) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// RootConfig returns the AWS root config with the configured region,
// endpoints and static credentials.
func (c *AWSConfig) RootConfig() vault.AWSRootConfig {
	return vault.AWSRootConfig{
		AccessKey:   c.AccessKeyID,
		SecretKey:   c.SecretAccessKey,
		Region:      c.Region,
		IAMEndpoint: c.Endpoint,
		STSEndpoint: c.Endpoint,
	}
}

// ClientConfig returns the Vault client configuration.
func (c *Config) ClientConfig() vault.ClientConfig {
	cfg := vault.ClientConfig{
		Address: c.Vault.Address,
		Timeout: c.Vault.Timeout,
	}
	if c.Vault.CACert != "" || c.Vault.SkipVerify {
		cfg.TLSConfig = &vault.TLSConfig{
			CACert:     c.Vault.CACert,
			SkipVerify: c.Vault.SkipVerify,
		}
	}
	return cfg
}

// LoginMount returns the auth mount to log in to, defaulting to the
// method's conventional path.
func (a *VaultAuthConfig) LoginMount() string {
	if a.Mount != "" {
		return a.Mount
	}
	switch a.Method {
	case AuthMethodKubernetes:
		return auth.DefaultKubernetesAuthMount
	case AuthMethodAWS:
		return auth.DefaultAWSAuthMount
	}
	return ""
}

// KubernetesLogin returns the options for the kubernetes login method.
func (c *VaultConfig) KubernetesLogin() auth.KubernetesLoginOptions {
	return auth.KubernetesLoginOptions{
		Role:      c.Auth.Role,
		TokenPath: c.Auth.TokenFile,
	}
}

// AWSLogin returns the options for the aws login method.
func (c *VaultConfig) AWSLogin() auth.AWSLoginOptions {
	return auth.AWSLoginOptions{
		Role:                   c.Auth.Role,
		Region:                 c.Auth.Region,
		STSEndpoint:            c.Auth.STSEndpoint,
		IAMServerIDHeaderValue: c.Auth.IAMServerID,
	}
}

// VaultToken returns the configured token, reading TokenFile if needed.
func (c *Config) VaultToken() (string, error) {
	if c.Vault.Token != "" {
		return c.Vault.Token, nil
	}
	if c.Vault.TokenFile == "" {
		return "", fmt.Errorf("no vault token configured")
	}
	data, err := os.ReadFile(c.Vault.TokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to read vault token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("vault token file %s is empty", c.Vault.TokenFile)
	}
	return tok, nil
}

// BootstrapConfig returns the provisioning configuration. root is the
// resolved AWS root config.
func (c *Config) BootstrapConfig(root vault.AWSRootConfig) (*bootstrap.Config, error) {
	overrides, err := c.KubernetesOverrides()
	if err != nil {
		return nil, err
	}
	return &bootstrap.Config{
		Generations:      append([]bootstrap.Generation(nil), c.Generations...),
		AWS:              root,
		KubernetesConfig: overrides,
		RoleTTL:          c.RoleTTL,
	}, nil
}

// KubernetesOverrides returns the configured cluster overrides, or nil if
// none are set. The CA certificate file is read here.
func (c *Config) KubernetesOverrides() (*bootstrap.KubernetesClusterConfig, error) {
	k := c.Kubernetes
	if k.Host == "" && k.CACertFile == "" && k.Issuer == "" {
		return nil, nil
	}

	overrides := &bootstrap.KubernetesClusterConfig{
		Host:   k.Host,
		Issuer: k.Issuer,
	}
	if k.CACertFile != "" {
		ca, err := os.ReadFile(k.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read kubernetes CA certificate: %w", err)
		}
		overrides.CACert = string(ca)
	}
	return overrides, nil
}

// ReviewerConfig returns the token reviewer configuration.
func (c *Config) ReviewerConfig() token.ReviewerConfig {
	r := c.Kubernetes.Reviewer
	return token.ReviewerConfig{
		ServiceAccount: token.ServiceAccountRef{
			Namespace: r.Namespace,
			Name:      r.ServiceAccount,
		},
		Duration:  r.Duration,
		TokenPath: r.TokenFile,
	}
}
