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
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/hpcsc/vault-setup/pkg/vault/token"
)

// Default paths for in-cluster Kubernetes configuration.
const (
	// ServiceAccountCAPath is the default path to the CA certificate.
	ServiceAccountCAPath = "/var/run/secrets/kubernetes.io/serviceaccount/ca.crt"

	// OIDCDiscoveryPath serves the service account issuer's discovery document.
	OIDCDiscoveryPath = "/.well-known/openid-configuration"
)

// K8sClusterDiscovery provides Kubernetes cluster information.
type K8sClusterDiscovery interface {
	// GetClusterConfig returns the Kubernetes cluster configuration.
	GetClusterConfig(ctx context.Context) (*KubernetesClusterConfig, error)
}

// ReviewerTokenSource produces the token_reviewer_jwt. Implemented by
// *token.Reviewer.
type ReviewerTokenSource interface {
	Token(ctx context.Context) (*token.TokenInfo, error)
}

// inClusterDiscovery implements K8sClusterDiscovery for in-cluster use.
type inClusterDiscovery struct {
	clientset  kubernetes.Interface
	caPath     string
	restConfig func() (*rest.Config, error)
	log        logr.Logger
}

// NewInClusterDiscovery creates a new K8sClusterDiscovery for in-cluster use.
// clientset is used to look up the service account issuer and may be nil.
func NewInClusterDiscovery(clientset kubernetes.Interface, log logr.Logger) K8sClusterDiscovery {
	return &inClusterDiscovery{
		clientset:  clientset,
		caPath:     ServiceAccountCAPath,
		restConfig: rest.InClusterConfig,
		log:        log.WithName("k8s-discovery"),
	}
}

// GetClusterConfig returns the Kubernetes cluster configuration.
func (d *inClusterDiscovery) GetClusterConfig(ctx context.Context) (*KubernetesClusterConfig, error) {
	d.log.Info("discovering kubernetes cluster configuration")

	config, err := d.restConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
	}

	caCert, err := os.ReadFile(d.caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate from %s: %w", d.caPath, err)
	}

	result := &KubernetesClusterConfig{
		Host:   config.Host,
		CACert: string(caCert),
	}

	// Vault falls back to its own default issuer when none is configured,
	// so a failed lookup is not fatal.
	if d.clientset != nil {
		issuer, err := discoverIssuer(ctx, d.clientset)
		if err != nil {
			d.log.Info("could not discover service account issuer", "error", err.Error())
		} else {
			result.Issuer = issuer
		}
	}

	d.log.Info("discovered kubernetes cluster config",
		"host", result.Host,
		"issuer", result.Issuer,
		"caCertLength", len(result.CACert),
	)

	return result, nil
}

// discoverIssuer reads the issuer from the API server's OIDC discovery document.
func discoverIssuer(ctx context.Context, clientset kubernetes.Interface) (string, error) {
	raw, err := clientset.Discovery().RESTClient().Get().AbsPath(OIDCDiscoveryPath).DoRaw(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", OIDCDiscoveryPath, err)
	}

	var doc struct {
		Issuer string `json:"issuer"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", OIDCDiscoveryPath, err)
	}
	if doc.Issuer == "" {
		return "", fmt.Errorf("%s has no issuer", OIDCDiscoveryPath)
	}
	return doc.Issuer, nil
}

// ClusterIdentitySource combines configured overrides, discovered cluster
// details and a reviewer token into an Identity.
type ClusterIdentitySource struct {
	reviewer  ReviewerTokenSource
	discovery K8sClusterDiscovery
	overrides *KubernetesClusterConfig
	log       logr.Logger
}

// NewClusterIdentitySource creates an IdentitySource. discovery may be nil
// when overrides supply both host and CA certificate.
func NewClusterIdentitySource(
	reviewer ReviewerTokenSource,
	discovery K8sClusterDiscovery,
	overrides *KubernetesClusterConfig,
	log logr.Logger,
) *ClusterIdentitySource {
	return &ClusterIdentitySource{
		reviewer:  reviewer,
		discovery: discovery,
		overrides: overrides,
		log:       log.WithName("identity"),
	}
}

// Identity resolves the cluster identity. Overrides win over discovered
// values. Without a configured or discovered issuer, the reviewer token's
// iss claim is used.
func (s *ClusterIdentitySource) Identity(ctx context.Context) (*Identity, error) {
	cluster, err := s.clusterConfig(ctx)
	if err != nil {
		return nil, err
	}

	info, err := s.reviewer.Token(ctx)
	if err != nil {
		return nil, err
	}

	issuer := cluster.Issuer
	if issuer == "" {
		issuer = info.Issuer
	}

	return &Identity{
		ReviewerJWT: info.Token,
		CACert:      cluster.CACert,
		Issuer:      issuer,
		Host:        cluster.Host,
	}, nil
}

// clusterConfig gets Kubernetes cluster configuration.
func (s *ClusterIdentitySource) clusterConfig(ctx context.Context) (*KubernetesClusterConfig, error) {
	override := s.overrides
	if override != nil && override.Host != "" && override.CACert != "" && override.Issuer != "" {
		s.log.Info("using override kubernetes config")
		cfg := *override
		return &cfg, nil
	}

	if s.discovery == nil {
		if override != nil && override.Host != "" && override.CACert != "" {
			cfg := *override
			return &cfg, nil
		}
		return nil, fmt.Errorf("kubernetes host and CA certificate must be configured when not running in a cluster")
	}

	s.log.Info("auto-discovering kubernetes cluster config")
	config, err := s.discovery.GetClusterConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-discover cluster config: %w", err)
	}

	// Merge with override if partial override provided
	if override != nil {
		if override.Host != "" {
			config.Host = override.Host
		}
		if override.CACert != "" {
			config.CACert = override.CACert
		}
		if override.Issuer != "" {
			config.Issuer = override.Issuer
		}
	}

	return config, nil
}

// Ensure implementations satisfy their interfaces.
var (
	_ K8sClusterDiscovery = (*inClusterDiscovery)(nil)
	_ IdentitySource      = (*ClusterIdentitySource)(nil)
	_ ReviewerTokenSource = (*token.Reviewer)(nil)
)
