//go:build integration

/*
Package integration runs vault-setup against a real Vault started with
testcontainers-go.
*/
package integration

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/exec"
	tcvault "github.com/testcontainers/testcontainers-go/modules/vault"

	"github.com/hpcsc/vault-setup/pkg/vault"
)

// VaultTestContainer wraps a testcontainers Vault dev server.
type VaultTestContainer struct {
	*tcvault.VaultContainer
	rootToken string
	address   string
}

// VaultContainerOption configures a VaultTestContainer
type VaultContainerOption func(*vaultContainerOptions)

type vaultContainerOptions struct {
	imageTag     string
	rootToken    string
	initCommands []string
	logLevel     string
}

func defaultOptions() *vaultContainerOptions {
	return &vaultContainerOptions{
		imageTag:  "1.17.2",
		rootToken: "root-token",
		logLevel:  "info",
	}
}

// WithImageTag sets the Vault image tag
func WithImageTag(tag string) VaultContainerOption {
	return func(o *vaultContainerOptions) {
		o.imageTag = tag
	}
}

// WithInitCommand runs a vault CLI command once the server is up.
func WithInitCommand(cmd string) VaultContainerOption {
	return func(o *vaultContainerOptions) {
		o.initCommands = append(o.initCommands, cmd)
	}
}

// NewVaultTestContainer creates and starts a new Vault test container
func NewVaultTestContainer(ctx context.Context, opts ...VaultContainerOption) (*VaultTestContainer, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	containerOpts := []testcontainers.ContainerCustomizer{
		tcvault.WithToken(options.rootToken),
		testcontainers.WithEnv(map[string]string{"VAULT_LOG_LEVEL": options.logLevel}),
	}
	for _, cmd := range options.initCommands {
		containerOpts = append(containerOpts, tcvault.WithInitCommand(cmd))
	}

	container, err := tcvault.Run(ctx, "hashicorp/vault:"+options.imageTag, containerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start vault container: %w", err)
	}

	address, err := container.HttpHostAddress(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("failed to get vault address: %w", err)
	}

	return &VaultTestContainer{
		VaultContainer: container,
		rootToken:      options.rootToken,
		address:        address,
	}, nil
}

// Address returns the HTTP address of the Vault container
func (v *VaultTestContainer) Address() string {
	return v.address
}

// RootToken returns the root token
func (v *VaultTestContainer) RootToken() string {
	return v.rootToken
}

// Client returns a root-authenticated client.
func (v *VaultTestContainer) Client() (*vault.Client, error) {
	client, err := vault.NewClient(vault.ClientConfig{Address: v.address, Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := client.AuthenticateToken(v.rootToken); err != nil {
		return nil, err
	}
	return client, nil
}

// Exec executes a vault CLI command inside the container
func (v *VaultTestContainer) Exec(ctx context.Context, cmd []string) (int, string, error) {
	fullCmd := append([]string{"vault"}, cmd...)

	exitCode, reader, err := v.VaultContainer.Exec(ctx, fullCmd, exec.Multiplexed())
	if err != nil {
		return exitCode, "", fmt.Errorf("exec failed: %w", err)
	}

	var output string
	if reader != nil {
		data, err := io.ReadAll(reader)
		if err != nil {
			return exitCode, "", fmt.Errorf("failed to read exec output: %w", err)
		}
		output = strings.TrimSpace(string(data))
	}
	return exitCode, output, nil
}
