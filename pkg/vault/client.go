package vault

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	infraerrors "github.com/hpcsc/vault-setup/shared/infrastructure/errors"
)

// DefaultTimeout bounds every call made through the client.
const DefaultTimeout = 30 * time.Second

// Client wraps the Vault API client with the typed operations the
// provisioner needs. Every failed call comes back as a RemoteError.
type Client struct {
	*api.Client
}

// ClientConfig holds configuration for creating a Vault client
type ClientConfig struct {
	Address   string
	TLSConfig *TLSConfig
	Timeout   time.Duration
}

// TLSConfig holds TLS configuration for Vault client
type TLSConfig struct {
	CACert     string
	SkipVerify bool
}

// Mount is an enabled auth method or secrets engine.
type Mount struct {
	// Path is the mount path without the trailing slash (e.g. "kubernetes-v1").
	Path string
	// Type is the backend type (e.g. "kubernetes", "aws").
	Type string
}

// NewClient creates a new Vault client with the given configuration
func NewClient(cfg ClientConfig) (*Client, error) {
	config := api.DefaultConfig()
	if cfg.Address != "" {
		config.Address = cfg.Address
	}

	config.Timeout = DefaultTimeout
	if cfg.Timeout > 0 {
		config.Timeout = cfg.Timeout
	}

	// Retries belong to the caller; a failed call surfaces immediately.
	config.MaxRetries = 0

	if cfg.TLSConfig != nil {
		if cfg.TLSConfig.CACert != "" {
			if err := config.ConfigureTLS(&api.TLSConfig{
				CACert:   cfg.TLSConfig.CACert,
				Insecure: cfg.TLSConfig.SkipVerify,
			}); err != nil {
				return nil, fmt.Errorf("failed to configure TLS: %w", err)
			}
		} else if cfg.TLSConfig.SkipVerify {
			config.HttpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			}
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	return &Client{
		Client: client,
	}, nil
}

// AuthenticateToken authenticates using a static token
func (c *Client) AuthenticateToken(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	c.SetToken(token)
	return nil
}

// Login authenticates against the auth method mounted at mount with the
// given login data and adopts the returned client token.
func (c *Client) Login(ctx context.Context, mount string, data map[string]interface{}) error {
	path := fmt.Sprintf("auth/%s/login", NormalizeMountPath(mount))
	secret, err := c.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return infraerrors.NewRemoteError("login", path, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return infraerrors.NewRemoteError("login", path, fmt.Errorf("login returned no token"))
	}

	c.SetToken(secret.Auth.ClientToken)
	return nil
}

// IsHealthy checks if Vault is healthy and the client can connect
func (c *Client) IsHealthy(ctx context.Context) (bool, error) {
	health, err := c.Sys().HealthWithContext(ctx)
	if err != nil {
		return false, infraerrors.NewRemoteError("health check", "sys/health", err)
	}

	// Vault is healthy if initialized and unsealed
	return health.Initialized && !health.Sealed, nil
}

// ListAuthMounts returns the enabled auth methods, sorted by path.
func (c *Client) ListAuthMounts(ctx context.Context) ([]Mount, error) {
	auths, err := c.Sys().ListAuthWithContext(ctx)
	if err != nil {
		return nil, infraerrors.NewRemoteError("list auth mounts", "sys/auth", err)
	}

	mounts := make([]Mount, 0, len(auths))
	for path, auth := range auths {
		m := Mount{Path: NormalizeMountPath(path)}
		if auth != nil {
			m.Type = auth.Type
		}
		mounts = append(mounts, m)
	}
	sortMounts(mounts)
	return mounts, nil
}

// EnableAuth enables an auth method of the given type at path.
func (c *Client) EnableAuth(ctx context.Context, path, methodType, description string) error {
	path = NormalizeMountPath(path)
	err := c.Sys().EnableAuthWithOptionsWithContext(ctx, path, &api.EnableAuthOptions{
		Type:        methodType,
		Description: description,
	})
	if err != nil {
		return infraerrors.NewRemoteError("enable auth", "sys/auth/"+path, err)
	}
	return nil
}

// WriteKubernetesAuthConfig writes the trust configuration of a Kubernetes
// auth method.
func (c *Client) WriteKubernetesAuthConfig(ctx context.Context, mount string, cfg KubernetesAuthConfig) error {
	path := AuthConfigPath(mount)
	if _, err := c.Logical().WriteWithContext(ctx, path, cfg.Data()); err != nil {
		return infraerrors.NewRemoteError("write auth config", path, err)
	}
	return nil
}

// ReadAuthRole reads a Kubernetes auth role. A missing role returns nil
// data and no error.
func (c *Client) ReadAuthRole(ctx context.Context, mount, roleName string) (map[string]interface{}, error) {
	path := AuthRolePath(mount, roleName)
	secret, err := c.Logical().ReadWithContext(ctx, path)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, infraerrors.NewRemoteError("read auth role", path, err)
	}
	if secret == nil {
		return nil, nil
	}
	return secret.Data, nil
}

// ReadAuthRolePolicies returns the policies currently attached to an auth
// role. A missing role has no policies.
func (c *Client) ReadAuthRolePolicies(ctx context.Context, mount, roleName string) ([]string, error) {
	data, err := c.ReadAuthRole(ctx, mount, roleName)
	if err != nil {
		return nil, err
	}
	return PoliciesFromRoleData(AuthRolePath(mount, roleName), data)
}

// WriteAuthRole creates or replaces a Kubernetes auth role.
func (c *Client) WriteAuthRole(ctx context.Context, mount, roleName string, role AuthRole) error {
	path := AuthRolePath(mount, roleName)
	if _, err := c.Logical().WriteWithContext(ctx, path, role.Data()); err != nil {
		return infraerrors.NewRemoteError("write auth role", path, err)
	}
	return nil
}

// ListSecretsMounts returns the enabled secrets engines, sorted by path.
func (c *Client) ListSecretsMounts(ctx context.Context) ([]Mount, error) {
	engines, err := c.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return nil, infraerrors.NewRemoteError("list secrets mounts", "sys/mounts", err)
	}

	mounts := make([]Mount, 0, len(engines))
	for path, engine := range engines {
		m := Mount{Path: NormalizeMountPath(path)}
		if engine != nil {
			m.Type = engine.Type
		}
		mounts = append(mounts, m)
	}
	sortMounts(mounts)
	return mounts, nil
}

// EnableSecretsEngine mounts a secrets engine of the given type at path.
func (c *Client) EnableSecretsEngine(ctx context.Context, path, engineType, description string) error {
	path = NormalizeMountPath(path)
	err := c.Sys().MountWithContext(ctx, path, &api.MountInput{
		Type:        engineType,
		Description: description,
	})
	if err != nil {
		return infraerrors.NewRemoteError("enable secrets engine", "sys/mounts/"+path, err)
	}
	return nil
}

// WriteAWSRootConfig overwrites the root configuration of an AWS secrets engine.
func (c *Client) WriteAWSRootConfig(ctx context.Context, mount string, cfg AWSRootConfig) error {
	path := AWSRootConfigPath(mount)
	if _, err := c.Logical().WriteWithContext(ctx, path, cfg.Data()); err != nil {
		return infraerrors.NewRemoteError("write aws root config", path, err)
	}
	return nil
}

// WriteSTSRole creates or replaces an AWS secrets engine role.
func (c *Client) WriteSTSRole(ctx context.Context, mount, roleName string, role STSRole) error {
	path := STSRoleDefinitionPath(mount, roleName)
	if _, err := c.Logical().WriteWithContext(ctx, path, role.Data()); err != nil {
		return infraerrors.NewRemoteError("write sts role", path, err)
	}
	return nil
}

// WritePolicy writes a policy to Vault
func (c *Client) WritePolicy(ctx context.Context, name, hcl string) error {
	if err := c.Sys().PutPolicyWithContext(ctx, name, hcl); err != nil {
		return infraerrors.NewRemoteError("write policy", "sys/policies/acl/"+name, err)
	}
	return nil
}

// ReadPolicy reads a policy from Vault
func (c *Client) ReadPolicy(ctx context.Context, name string) (string, error) {
	policy, err := c.Sys().GetPolicyWithContext(ctx, name)
	if err != nil {
		return "", infraerrors.NewRemoteError("read policy", "sys/policies/acl/"+name, err)
	}
	return policy, nil
}

// NormalizeMountPath strips surrounding slashes from a mount path.
func NormalizeMountPath(path string) string {
	return strings.Trim(path, "/")
}

// HasMount reports whether path is among mounts.
func HasMount(mounts []Mount, path string) bool {
	path = NormalizeMountPath(path)
	for _, m := range mounts {
		if NormalizeMountPath(m.Path) == path {
			return true
		}
	}
	return false
}

func sortMounts(mounts []Mount) {
	sort.Slice(mounts, func(i, j int) bool {
		return mounts[i].Path < mounts[j].Path
	})
}
