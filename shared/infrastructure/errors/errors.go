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

// Package errors provides domain-specific error types for the provisioner.
// A provisioning run has no local recovery: every error here is fatal to the
// current run, and the types only exist so callers can tell a failed Vault
// call apart from bad input or a response the engine cannot trust.
package errors

import (
	"errors"
	"fmt"
)

// RemoteError indicates a call to Vault failed (network, timeout,
// authentication, permission). The cause is kept intact for errors.Is/As.
type RemoteError struct {
	Operation string // e.g. "list auth mounts", "write policy"
	Path      string // Vault path of the call, if any
	Cause     error  // The underlying error
}

func (e *RemoteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("vault %s at %q failed: %v", e.Operation, e.Path, e.Cause)
	}
	return fmt.Sprintf("vault %s failed: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// NewRemoteError creates a RemoteError.
func NewRemoteError(operation, path string, cause error) *RemoteError {
	return &RemoteError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// IsRemoteError returns true if the error is a RemoteError.
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}

// MalformedResponseError indicates Vault answered with data of an unexpected
// shape. Merge logic cannot proceed without a trustworthy baseline, so this
// is never treated as "empty".
type MalformedResponseError struct {
	Path    string // Vault path that was read
	Field   string // Field that had the wrong shape
	Message string // What was wrong with it
}

func (e *MalformedResponseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed response from %q: field %s: %s", e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("malformed response from %q: %s", e.Path, e.Message)
}

// NewMalformedResponseError creates a MalformedResponseError.
func NewMalformedResponseError(path, field, message string) *MalformedResponseError {
	return &MalformedResponseError{
		Path:    path,
		Field:   field,
		Message: message,
	}
}

// IsMalformedResponseError returns true if the error is a MalformedResponseError.
func IsMalformedResponseError(err error) bool {
	var malformedErr *MalformedResponseError
	return errors.As(err, &malformedErr)
}

// ValidationError indicates invalid configuration or input.
// This is a permanent error - retrying won't help without user correction.
type ValidationError struct {
	Field   string // The field that failed validation
	Value   string // The invalid value (may be redacted for sensitive data)
	Message string // Why validation failed
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// NotFoundError indicates a required local input doesn't exist,
// e.g. a mounted service account token or CA certificate.
type NotFoundError struct {
	ResourceType string // e.g. "service account token", "issuer"
	ResourceName string // Path or name of the missing resource
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resourceType, name string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: name,
	}
}

// IsNotFoundError returns true if the error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsPermanent reports whether rerunning the same provisioning run cannot
// succeed without the user changing something first.
func IsPermanent(err error) bool {
	return IsValidationError(err) || IsNotFoundError(err)
}
