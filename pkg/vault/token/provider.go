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

import "context"

// TokenProvider acquires service account tokens.
//
// # Implementations
//
//   - MountedTokenProvider: reads the token projected into the pod
//   - TokenRequestProvider: mints a token through the Kubernetes TokenRequest API
type TokenProvider interface {
	// GetToken acquires a service account token with the given options.
	//
	// For MountedTokenProvider, ServiceAccount and Duration are ignored.
	GetToken(ctx context.Context, opts GetTokenOptions) (*TokenInfo, error)
}
