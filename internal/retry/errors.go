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

package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/hpcsc/vault-setup/pkg/vault"
	infraerrors "github.com/hpcsc/vault-setup/shared/infrastructure/errors"
)

// retryableStatus are Vault responses a later run can get past. 503 is
// returned while Vault is sealed or in standby.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableError determines if a failed run should be started again
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// Bad input or a malformed store needs a human
	if infraerrors.IsPermanent(err) || infraerrors.IsMalformedResponseError(err) {
		return false
	}

	// A concurrent run mounted the path first; the next run sees the mount.
	if vault.IsPathInUse(err) {
		return true
	}

	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return retryableStatus[apiErr.StatusCode]
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "timeout", "eof"} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
