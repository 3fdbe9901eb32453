/*
Package auth builds the login payloads vault-setup uses to authenticate
itself to Vault.

This file implements Kubernetes service account login.
*/
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/hpcsc/vault-setup/pkg/vault/token"
)

// DefaultKubernetesAuthMount is the default mount path for Kubernetes auth in Vault
const DefaultKubernetesAuthMount = "kubernetes"

// KubernetesLoginOptions contains options for Kubernetes login
type KubernetesLoginOptions struct {
	// Role is the Vault role to authenticate as
	Role string

	// TokenPath is the service account token file (default: the mounted token)
	TokenPath string
}

// KubernetesLoginData returns the login data for Vault's Kubernetes auth method.
func KubernetesLoginData(opts KubernetesLoginOptions) (map[string]interface{}, error) {
	if opts.Role == "" {
		return nil, fmt.Errorf("kubernetes login requires a role")
	}

	path := opts.TokenPath
	if path == "" {
		path = token.DefaultServiceAccountTokenPath
	}
	jwt, err := ReadServiceAccountToken(path)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"role": opts.Role,
		"jwt":  jwt,
	}, nil
}

// ReadServiceAccountToken reads a service account token, dropping
// surrounding whitespace. An empty file is an error.
func ReadServiceAccountToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read service account token from %s: %w", path, err)
	}
	jwt := strings.TrimSpace(string(data))
	if jwt == "" {
		return "", fmt.Errorf("service account token at %s is empty", path)
	}
	return jwt, nil
}
