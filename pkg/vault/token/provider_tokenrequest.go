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

package token

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	authenticationv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// TokenRequestProvider uses the Kubernetes TokenRequest API to acquire tokens.
//
// # Requirements
//
//   - RBAC: create serviceaccounts/token in the service account's namespace
//   - The service account needs system:auth-delegator for Vault to use the
//     token as token_reviewer_jwt
//
// # Usage
//
//	provider := NewTokenRequestProvider(clientset, log)
//	info, err := provider.GetToken(ctx, GetTokenOptions{
//	    ServiceAccount: ServiceAccountRef{Namespace: "vault", Name: "vault-auth"},
//	    Duration:       24 * time.Hour,
//	})
type TokenRequestProvider struct {
	clientset kubernetes.Interface
	log       logr.Logger
}

// NewTokenRequestProvider creates a new TokenRequestProvider.
func NewTokenRequestProvider(clientset kubernetes.Interface, log logr.Logger) *TokenRequestProvider {
	return &TokenRequestProvider{
		clientset: clientset,
		log:       log.WithName("tokenrequest-provider"),
	}
}

// GetToken uses the Kubernetes TokenRequest API to create a new token.
func (p *TokenRequestProvider) GetToken(ctx context.Context, opts GetTokenOptions) (*TokenInfo, error) {
	if !opts.ServiceAccount.IsSet() {
		return nil, fmt.Errorf("service account namespace and name are required")
	}

	duration := opts.Duration
	if duration == 0 {
		duration = DefaultReviewerDuration
	}
	if duration < MinTokenDuration {
		duration = MinTokenDuration
	}

	p.log.V(1).Info("requesting token via TokenRequest API",
		"serviceAccount", opts.ServiceAccount.String(),
		"duration", duration,
		"audiences", opts.Audiences,
	)

	expirationSeconds := int64(duration.Seconds())
	tokenRequest := &authenticationv1.TokenRequest{
		Spec: authenticationv1.TokenRequestSpec{
			Audiences:         opts.Audiences,
			ExpirationSeconds: &expirationSeconds,
		},
	}

	result, err := p.clientset.CoreV1().ServiceAccounts(opts.ServiceAccount.Namespace).
		CreateToken(ctx, opts.ServiceAccount.Name, tokenRequest, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create token for %s: %w", opts.ServiceAccount.String(), err)
	}
	if result.Status.Token == "" {
		return nil, fmt.Errorf("TokenRequest for %s returned an empty token", opts.ServiceAccount.String())
	}

	info := &TokenInfo{
		Token:          result.Status.Token,
		ExpirationTime: result.Status.ExpirationTimestamp.Time,
		IssuedAt:       result.CreationTimestamp.Time,
		Audiences:      result.Spec.Audiences,
	}
	if len(info.Audiences) == 0 {
		info.Audiences = opts.Audiences
	}

	// The issuer is only in the claims; a token that does not parse is still
	// usable as a reviewer token.
	if issuer, err := IssuerFromToken(info.Token); err == nil {
		info.Issuer = issuer
	}

	p.log.V(1).Info("successfully acquired token via TokenRequest API",
		"expiresAt", info.ExpirationTime,
		"issuer", info.Issuer,
	)

	return info, nil
}

// Ensure TokenRequestProvider implements TokenProvider.
var _ TokenProvider = (*TokenRequestProvider)(nil)
