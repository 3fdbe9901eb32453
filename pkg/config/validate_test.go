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
	"errors"
	"strings"
	"testing"

	"github.com/hpcsc/vault-setup/pkg/vault/bootstrap"
)

func validConfig() *Config {
	cfg := &Config{Vault: VaultConfig{Token: "s.test"}}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		fields []string
	}{
		{name: "defaults with token", modify: func(*Config) {}},
		{
			name:   "bad vault address scheme",
			modify: func(c *Config) { c.Vault.Address = "ftp://vault:8200" },
			fields: []string{"vault.address"},
		},
		{
			name:   "vault address without host",
			modify: func(c *Config) { c.Vault.Address = "https://" },
			fields: []string{"vault.address"},
		},
		{
			name:   "token file is enough",
			modify: func(c *Config) { c.Vault.Token = ""; c.Vault.TokenFile = "/var/run/vault-token" },
		},
		{
			name: "kubernetes login needs no token",
			modify: func(c *Config) {
				c.Vault.Token = ""
				c.Vault.Auth.Method = AuthMethodKubernetes
				c.Vault.Auth.Role = "vault-setup"
			},
		},
		{
			name: "aws login without role",
			modify: func(c *Config) {
				c.Vault.Auth.Method = AuthMethodAWS
			},
			fields: []string{"vault.auth.role"},
		},
		{
			name: "aws login with bad sts endpoint",
			modify: func(c *Config) {
				c.Vault.Auth.Method = AuthMethodAWS
				c.Vault.Auth.Role = "vault-setup"
				c.Vault.Auth.STSEndpoint = "sts.amazonaws.com"
			},
			fields: []string{"vault.auth.sts_endpoint"},
		},
		{
			name:   "unknown login method",
			modify: func(c *Config) { c.Vault.Auth.Method = "approle" },
			fields: []string{"vault.auth.method"},
		},
		{
			name:   "half static credentials",
			modify: func(c *Config) { c.AWS.AccessKeyID = "AKIA" },
			fields: []string{"aws.access_key_id"},
		},
		{
			name:   "bad endpoint",
			modify: func(c *Config) { c.AWS.Endpoint = "localstack:4566" },
			fields: []string{"aws.endpoint"},
		},
		{
			name:   "half reviewer service account",
			modify: func(c *Config) { c.Kubernetes.Reviewer.Namespace = "vault" },
			fields: []string{"kubernetes.reviewer"},
		},
		{
			name:   "bad role ttl",
			modify: func(c *Config) { c.RoleTTL = "an hour" },
			fields: []string{"role_ttl"},
		},
		{
			name: "duplicate mounts",
			modify: func(c *Config) {
				c.Generations = []bootstrap.Generation{
					{Name: "v1", AuthMount: "k8s", SecretsMount: "aws-v1"},
					{Name: "v2", AuthMount: "k8s", SecretsMount: "aws-v2"},
				}
			},
			fields: []string{"generations"},
		},
		{
			name: "errors are collected",
			modify: func(c *Config) {
				c.Vault.Token = ""
				c.Vault.Timeout = -1
				c.AWS.Region = ""
			},
			fields: []string{"vault.token", "vault.timeout", "aws.region", "generations"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			if len(tt.fields) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			var got []string
			for _, fe := range verr.Errors {
				got = append(got, fe.Field)
			}
			if strings.Join(got, ",") != strings.Join(tt.fields, ",") {
				t.Errorf("fields = %v, want %v", got, tt.fields)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("empty Error() = %q", got)
	}

	one := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := one.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("single Error() = %q", got)
	}

	two := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	got := two.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("multi Error() = %q", got)
	}
}
