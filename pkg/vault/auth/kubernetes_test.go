/*
Package auth builds the login payloads vault-setup uses to authenticate
itself to Vault.

This file contains unit tests for Kubernetes login.
*/
package auth

import (
	"os"
	"path/filepath"
	"testing"
)

const testVaultRole = "testVaultRole"

func writeToken(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp token file: %v", err)
	}
	return path
}

func TestReadServiceAccountToken(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantToken string
		wantErr   bool
	}{
		{
			name:      "valid token",
			content:   "eyJhbGciOiJSUzI1NiIsImtpZCI6InRlc3QifQ.eyJpc3MiOiJrdWJlcm5ldGVzL3NlcnZpY2VhY2NvdW50In0.signature",
			wantToken: "eyJhbGciOiJSUzI1NiIsImtpZCI6InRlc3QifQ.eyJpc3MiOiJrdWJlcm5ldGVzL3NlcnZpY2VhY2NvdW50In0.signature",
		},
		{
			name:      "token with newline",
			content:   "token-with-newline\n",
			wantToken: "token-with-newline",
		},
		{
			name:    "empty file",
			content: "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			content: " \n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ReadServiceAccountToken(writeToken(t, tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadServiceAccountToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if token != tt.wantToken {
				t.Errorf("ReadServiceAccountToken() = %q, want %q", token, tt.wantToken)
			}
		})
	}
}

func TestReadServiceAccountToken_NotFound(t *testing.T) {
	if _, err := ReadServiceAccountToken("/nonexistent/path/to/token"); err == nil {
		t.Error("ReadServiceAccountToken() expected error for nonexistent file")
	}
}

func TestReadServiceAccountToken_Directory(t *testing.T) {
	if _, err := ReadServiceAccountToken(t.TempDir()); err == nil {
		t.Error("ReadServiceAccountToken() expected error for directory")
	}
}

func TestKubernetesLoginData(t *testing.T) {
	path := writeToken(t, "sa-jwt\n")

	data, err := KubernetesLoginData(KubernetesLoginOptions{Role: testVaultRole, TokenPath: path})
	if err != nil {
		t.Fatalf("KubernetesLoginData() error = %v", err)
	}
	if data["role"] != testVaultRole {
		t.Errorf("role = %v, want %s", data["role"], testVaultRole)
	}
	if data["jwt"] != "sa-jwt" {
		t.Errorf("jwt = %v, want sa-jwt", data["jwt"])
	}
}

func TestKubernetesLoginData_Errors(t *testing.T) {
	if _, err := KubernetesLoginData(KubernetesLoginOptions{TokenPath: writeToken(t, "jwt")}); err == nil {
		t.Error("KubernetesLoginData() expected error without a role")
	}
	if _, err := KubernetesLoginData(KubernetesLoginOptions{Role: testVaultRole, TokenPath: "/nonexistent/token"}); err == nil {
		t.Error("KubernetesLoginData() expected error for missing token")
	}
}
