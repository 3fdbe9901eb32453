package vault

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"
)

// IsNotFound reports whether err is a 404 from Vault.
func IsNotFound(err error) bool {
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsPermissionDenied reports whether err is a 403 from Vault.
func IsPermissionDenied(err error) bool {
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsPathInUse reports whether err is Vault refusing to mount over an
// existing mount.
func IsPathInUse(err error) bool {
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		errMessage := strings.Join(apiErr.Errors, ",")
		return apiErr.StatusCode == http.StatusBadRequest && strings.Contains(errMessage, "path is already in use")
	}
	return false
}
