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
	"time"

	"github.com/go-logr/logr"
	"k8s.io/client-go/kubernetes"
)

// Reviewer produces the token_reviewer_jwt written into a Kubernetes auth
// method's config. Vault calls the TokenReview API with it, so an expired
// reviewer token breaks every login against that mount.
type Reviewer struct {
	provider TokenProvider
	config   *ReviewerConfig
	now      func() time.Time
	log      logr.Logger
}

// NewReviewer returns a Reviewer reading tokens from provider.
func NewReviewer(provider TokenProvider, config ReviewerConfig, log logr.Logger) *Reviewer {
	return &Reviewer{
		provider: provider,
		config:   config.WithDefaults(),
		now:      time.Now,
		log:      log.WithName("token-reviewer"),
	}
}

// NewReviewerFromConfig picks the provider for config: the TokenRequest API
// when a service account is named and a clientset is available, otherwise
// the mounted token file.
func NewReviewerFromConfig(config ReviewerConfig, clientset kubernetes.Interface, log logr.Logger) *Reviewer {
	cfg := config.WithDefaults()

	var provider TokenProvider
	if cfg.ServiceAccount.IsSet() && clientset != nil {
		provider = NewTokenRequestProvider(clientset, log)
	} else {
		provider = NewMountedTokenProvider(cfg.TokenPath, log)
	}
	return NewReviewer(provider, *cfg, log)
}

// Token acquires a reviewer token. Expired tokens are rejected.
func (r *Reviewer) Token(ctx context.Context) (*TokenInfo, error) {
	info, err := r.provider.GetToken(ctx, GetTokenOptions{
		ServiceAccount: r.config.ServiceAccount,
		Duration:       r.config.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token reviewer JWT: %w", err)
	}

	now := r.now()
	if info.Expired(now) {
		return nil, fmt.Errorf("token reviewer JWT expired at %s", info.ExpirationTime.Format(time.RFC3339))
	}

	r.log.V(1).Info("acquired token reviewer JWT",
		"expiresAt", info.ExpirationTime,
		"age", tokenAge(info, now),
	)
	return info, nil
}
