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
	"net/url"
	"strings"
	"time"

	"github.com/hpcsc/vault-setup/pkg/vault/bootstrap"
)

// FieldError is a validation error for a single configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "vault.address").
	Field string

	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// listing every problem, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateVault(&cfg.Vault)...)
	errs = append(errs, validateAWS(&cfg.AWS)...)
	errs = append(errs, validateKubernetes(&cfg.Kubernetes)...)

	if _, err := time.ParseDuration(cfg.RoleTTL); err != nil {
		errs = append(errs, FieldError{Field: "role_ttl", Message: fmt.Sprintf("invalid duration %q", cfg.RoleTTL)})
	}

	bc := bootstrap.Config{Generations: cfg.Generations, AWS: cfg.AWS.RootConfig()}
	if err := bc.Validate(); err != nil {
		errs = append(errs, FieldError{Field: "generations", Message: err.Error()})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateVault(v *VaultConfig) []FieldError {
	var errs []FieldError

	if err := validateURL(v.Address); err != nil {
		errs = append(errs, FieldError{Field: "vault.address", Message: err.Error()})
	}
	switch v.Auth.Method {
	case AuthMethodToken:
		if v.Token == "" && v.TokenFile == "" {
			errs = append(errs, FieldError{Field: "vault.token", Message: "token or token_file is required"})
		}
	case AuthMethodKubernetes, AuthMethodAWS:
		if v.Auth.Role == "" {
			errs = append(errs, FieldError{Field: "vault.auth.role", Message: fmt.Sprintf("role is required for the %s method", v.Auth.Method)})
		}
		if v.Auth.STSEndpoint != "" {
			if err := validateURL(v.Auth.STSEndpoint); err != nil {
				errs = append(errs, FieldError{Field: "vault.auth.sts_endpoint", Message: err.Error()})
			}
		}
	default:
		errs = append(errs, FieldError{
			Field:   "vault.auth.method",
			Message: fmt.Sprintf("unknown method %q, want token, kubernetes or aws", v.Auth.Method),
		})
	}
	if v.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "vault.timeout", Message: "must be positive"})
	}
	return errs
}

func validateAWS(a *AWSConfig) []FieldError {
	var errs []FieldError

	if a.Region == "" {
		errs = append(errs, FieldError{Field: "aws.region", Message: "region is required"})
	}
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		errs = append(errs, FieldError{Field: "aws.access_key_id", Message: "access_key_id and secret_access_key must be set together"})
	}
	if a.Endpoint != "" {
		if err := validateURL(a.Endpoint); err != nil {
			errs = append(errs, FieldError{Field: "aws.endpoint", Message: err.Error()})
		}
	}
	return errs
}

func validateKubernetes(k *KubernetesConfig) []FieldError {
	var errs []FieldError

	if k.Host != "" {
		if err := validateURL(k.Host); err != nil {
			errs = append(errs, FieldError{Field: "kubernetes.host", Message: err.Error()})
		}
	}
	if (k.Reviewer.Namespace == "") != (k.Reviewer.ServiceAccount == "") {
		errs = append(errs, FieldError{Field: "kubernetes.reviewer", Message: "namespace and service_account must be set together"})
	}
	if k.Reviewer.Duration < 0 {
		errs = append(errs, FieldError{Field: "kubernetes.reviewer.duration", Message: "must not be negative"})
	}
	return errs
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
