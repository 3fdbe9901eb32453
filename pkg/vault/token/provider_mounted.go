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
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultServiceAccountTokenPath is the default location for the mounted SA token.
const DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// MountedTokenProvider reads tokens from a mounted file.
//
// Token lifetime is controlled by the kubelet projection, so expiry and
// issuer are read from the JWT claims.
type MountedTokenProvider struct {
	tokenPath string
	log       logr.Logger
}

// NewMountedTokenProvider creates a new MountedTokenProvider.
// If tokenPath is empty, it defaults to DefaultServiceAccountTokenPath.
func NewMountedTokenProvider(tokenPath string, log logr.Logger) *MountedTokenProvider {
	if tokenPath == "" {
		tokenPath = DefaultServiceAccountTokenPath
	}
	return &MountedTokenProvider{
		tokenPath: tokenPath,
		log:       log.WithName("mounted-token-provider"),
	}
}

// GetToken reads the service account token from the mounted file.
func (p *MountedTokenProvider) GetToken(ctx context.Context, opts GetTokenOptions) (*TokenInfo, error) {
	p.log.V(1).Info("reading mounted token", "path", p.tokenPath)

	tokenBytes, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token from %s: %w", p.tokenPath, err)
	}

	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return nil, fmt.Errorf("token file %s is empty", p.tokenPath)
	}

	info, err := parseClaims(token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token from %s: %w", p.tokenPath, err)
	}

	p.log.V(1).Info("successfully read mounted token",
		"expiresAt", info.ExpirationTime,
		"issuer", info.Issuer,
	)

	return info, nil
}

// parseClaims extracts registered claims without verifying the signature.
// Vault verifies the token when it is presented.
func parseClaims(token string) (*TokenInfo, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	info := &TokenInfo{
		Token:     token,
		Issuer:    claims.Issuer,
		Audiences: []string(claims.Audience),
	}
	if claims.ExpiresAt != nil {
		info.ExpirationTime = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}

// IssuerFromToken returns the iss claim of a JWT, or "" if it has none.
func IssuerFromToken(token string) (string, error) {
	info, err := parseClaims(token)
	if err != nil {
		return "", err
	}
	return info.Issuer, nil
}

// tokenAge is used in logs only.
func tokenAge(info *TokenInfo, now time.Time) time.Duration {
	if info.IssuedAt.IsZero() {
		return 0
	}
	return now.Sub(info.IssuedAt)
}

// Ensure MountedTokenProvider implements TokenProvider.
var _ TokenProvider = (*MountedTokenProvider)(nil)
