package vault

import (
	"fmt"

	infraerrors "github.com/hpcsc/vault-setup/shared/infrastructure/errors"
)

// Backend types used by the provisioner.
const (
	AuthTypeKubernetes   = "kubernetes"
	SecretsEngineTypeAWS = "aws"

	// CredentialTypeAssumedRole makes the AWS engine issue STS AssumeRole credentials.
	CredentialTypeAssumedRole = "assumed_role"
)

// KubernetesAuthConfig is the trust configuration of a Kubernetes auth method.
type KubernetesAuthConfig struct {
	// Host is the Kubernetes API server URL.
	Host string
	// CACert is the PEM CA certificate of the Kubernetes API.
	CACert string
	// TokenReviewerJWT is the token Vault uses to call the TokenReview API.
	TokenReviewerJWT string
	// Issuer is the service account token issuer (OIDC issuer URL).
	Issuer string
}

// Data renders the config as a Vault request body.
func (c KubernetesAuthConfig) Data() map[string]interface{} {
	data := map[string]interface{}{
		"kubernetes_host":    c.Host,
		"kubernetes_ca_cert": c.CACert,
		"token_reviewer_jwt": c.TokenReviewerJWT,
	}
	if c.Issuer != "" {
		data["issuer"] = c.Issuer
	}
	return data
}

// AuthRole is a Kubernetes auth role: the binding between service account
// identities and the policies their tokens receive.
type AuthRole struct {
	BoundServiceAccountNames      []string
	BoundServiceAccountNamespaces []string
	Policies                      []string
	TTL                           string
}

// Data renders the role as a Vault request body.
func (r AuthRole) Data() map[string]interface{} {
	policies := r.Policies
	if policies == nil {
		policies = []string{}
	}
	return map[string]interface{}{
		"bound_service_account_names":      r.BoundServiceAccountNames,
		"bound_service_account_namespaces": r.BoundServiceAccountNamespaces,
		"policies":                         policies,
		"ttl":                              r.TTL,
	}
}

// AWSRootConfig is the root configuration of an AWS secrets engine.
type AWSRootConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	// IAMEndpoint and STSEndpoint point the engine at a mock backend
	// outside production.
	IAMEndpoint string
	STSEndpoint string
}

// Data renders the config as a Vault request body.
func (c AWSRootConfig) Data() map[string]interface{} {
	data := map[string]interface{}{
		"access_key": c.AccessKey,
		"secret_key": c.SecretKey,
		"region":     c.Region,
	}
	if c.IAMEndpoint != "" {
		data["iam_endpoint"] = c.IAMEndpoint
	}
	if c.STSEndpoint != "" {
		data["sts_endpoint"] = c.STSEndpoint
	}
	return data
}

// STSRole is an AWS secrets engine role bound to IAM role ARNs.
type STSRole struct {
	RoleARNs       []string
	CredentialType string
}

// Data renders the role as a Vault request body.
func (r STSRole) Data() map[string]interface{} {
	return map[string]interface{}{
		"role_arns":       r.RoleARNs,
		"credential_type": r.CredentialType,
	}
}

// AuthConfigPath returns the config path of an auth mount.
func AuthConfigPath(mount string) string {
	return fmt.Sprintf("auth/%s/config", NormalizeMountPath(mount))
}

// AuthRolePath returns the path of a role under an auth mount.
func AuthRolePath(mount, roleName string) string {
	return fmt.Sprintf("auth/%s/role/%s", NormalizeMountPath(mount), roleName)
}

// AWSRootConfigPath returns the root config path of an AWS secrets engine.
func AWSRootConfigPath(mount string) string {
	return fmt.Sprintf("%s/config/root", NormalizeMountPath(mount))
}

// STSRoleDefinitionPath returns the path where an AWS engine role is defined.
func STSRoleDefinitionPath(mount, roleName string) string {
	return fmt.Sprintf("%s/roles/%s", NormalizeMountPath(mount), roleName)
}

// STSCredentialsPath returns the path credentials for an AWS engine role
// are issued from.
func STSCredentialsPath(mount, roleName string) string {
	return fmt.Sprintf("%s/sts/%s", NormalizeMountPath(mount), roleName)
}

// PoliciesFromRoleData extracts the policy list from auth role data.
// Newer Vault versions return token_policies, older ones policies.
func PoliciesFromRoleData(path string, data map[string]interface{}) ([]string, error) {
	if data == nil {
		return nil, nil
	}

	field := "token_policies"
	raw, ok := data[field]
	if !ok || raw == nil {
		field = "policies"
		raw, ok = data[field]
	}
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		policies := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, infraerrors.NewMalformedResponseError(path, field,
					fmt.Sprintf("element %d is %T, expected string", i, item))
			}
			policies = append(policies, s)
		}
		return policies, nil
	default:
		return nil, infraerrors.NewMalformedResponseError(path, field,
			fmt.Sprintf("got %T, expected a list of strings", raw))
	}
}
