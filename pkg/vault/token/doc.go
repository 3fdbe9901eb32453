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

// Package token acquires Kubernetes service account tokens for configuring
// Vault's Kubernetes auth method.
//
// # Key Types
//
//   - TokenProvider: strategy for acquiring service account tokens
//   - MountedTokenProvider: reads the projected token from the pod filesystem
//   - TokenRequestProvider: mints a token through the TokenRequest API
//   - Reviewer: produces the token_reviewer_jwt for an auth method
//
// # Usage
//
//	reviewer := NewReviewerFromConfig(ReviewerConfig{
//	    ServiceAccount: ServiceAccountRef{Namespace: "vault", Name: "vault-auth"},
//	}, clientset, log)
//	info, err := reviewer.Token(ctx)
package token
