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

import "time"

const (
	// DefaultReviewerDuration is how long a requested token_reviewer_jwt is valid.
	DefaultReviewerDuration = 24 * time.Hour

	// MinTokenDuration is the shortest lifetime the TokenRequest API accepts.
	MinTokenDuration = 10 * time.Minute
)

// TokenInfo contains the acquired token and its metadata.
// This is the output of TokenProvider.GetToken.
type TokenInfo struct {
	// Token is the JWT token string.
	Token string

	// ExpirationTime is when the token expires. Zero if the token carries
	// no exp claim.
	ExpirationTime time.Time

	// IssuedAt is when the token was issued.
	IssuedAt time.Time

	// Issuer is the iss claim, when known. For projected service account
	// tokens this is the cluster's service account issuer.
	Issuer string

	// Audiences are the audiences the token is valid for.
	Audiences []string
}

// Expired reports whether the token has an expiry that is not after now.
func (i *TokenInfo) Expired(now time.Time) bool {
	if i.ExpirationTime.IsZero() {
		return false
	}
	return !i.ExpirationTime.After(now)
}

// GetTokenOptions configures token acquisition.
type GetTokenOptions struct {
	// ServiceAccount identifies the service account to get a token for.
	ServiceAccount ServiceAccountRef

	// Duration is the requested token lifetime (for TokenRequest API).
	Duration time.Duration

	// Audiences are the intended audiences for the token. Empty means the
	// API server's default audiences, which is what TokenReview accepts.
	Audiences []string
}

// ServiceAccountRef identifies a Kubernetes service account.
type ServiceAccountRef struct {
	// Namespace is the service account's namespace.
	Namespace string

	// Name is the service account's name.
	Name string
}

// IsSet reports whether both namespace and name are populated.
func (r ServiceAccountRef) IsSet() bool {
	return r.Namespace != "" && r.Name != ""
}

// String returns namespace/name.
func (r ServiceAccountRef) String() string {
	return r.Namespace + "/" + r.Name
}

// ReviewerConfig selects where the token_reviewer_jwt comes from.
type ReviewerConfig struct {
	// ServiceAccount, when set, mints the token through the TokenRequest API.
	ServiceAccount ServiceAccountRef

	// Duration is the requested lifetime of a minted token.
	Duration time.Duration

	// TokenPath is the mounted token file used when ServiceAccount is unset.
	TokenPath string
}

// WithDefaults returns a copy of ReviewerConfig with default values applied.
func (c *ReviewerConfig) WithDefaults() *ReviewerConfig {
	cfg := *c
	if cfg.Duration == 0 {
		cfg.Duration = DefaultReviewerDuration
	}
	if cfg.Duration < MinTokenDuration {
		cfg.Duration = MinTokenDuration
	}
	if cfg.TokenPath == "" {
		cfg.TokenPath = DefaultServiceAccountTokenPath
	}
	return &cfg
}
