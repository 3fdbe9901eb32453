package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vault-setup",
	Short: "Idempotent Vault provisioning for Kubernetes workloads on AWS",
	Long: `vault-setup provisions HashiCorp Vault so Kubernetes workloads can obtain
AWS credentials:
  - a Kubernetes auth method per generation
  - an AWS secrets engine per generation
  - an STS role and the policy granting access to it
  - the association of that policy with the workload's auth role

Runs are safe to repeat against a partially provisioned Vault.`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SilenceErrors = true
}
