package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/hpcsc/vault-setup/internal/retry"
	"github.com/hpcsc/vault-setup/pkg/awscreds"
	"github.com/hpcsc/vault-setup/pkg/config"
	"github.com/hpcsc/vault-setup/pkg/logger"
	"github.com/hpcsc/vault-setup/pkg/metrics"
	"github.com/hpcsc/vault-setup/pkg/vault"
	"github.com/hpcsc/vault-setup/pkg/vault/auth"
	"github.com/hpcsc/vault-setup/pkg/vault/bootstrap"
	"github.com/hpcsc/vault-setup/pkg/vault/token"
)

// setupOptions are the flags of the setup command.
type setupOptions struct {
	vaultRole   string
	iamRole     string
	keys        []string
	retries     int
	metricsFile string
}

func newSetupCmd() *cobra.Command {
	opts := &setupOptions{}

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision auth methods, secrets engines and the role for a workload",
		Long: `Provision every configured generation in order (v1 then v2 by default):
enable the Kubernetes auth method and AWS secrets engine when missing, write
the AWS root config, write the STS role for --iam-role and attach its policy
to --vault-role. Each --key path is granted read and list through one extra
policy per generation.

The first failure stops the run. With --retries, retryable failures rerun the
whole setup with exponential backoff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(verbose)
			ctrllog.SetLogger(log)
			ctx := logger.IntoContext(cmd.Context(), log)

			return runSetup(ctx, opts, cmd.OutOrStdout(), log)
		},
	}

	cmd.Flags().StringVar(&opts.vaultRole, "vault-role", "", "Kubernetes auth role to provision (required)")
	cmd.Flags().StringVar(&opts.iamRole, "iam-role", "", "IAM role ARN the STS role assumes (required)")
	cmd.Flags().StringArrayVar(&opts.keys, "key", nil, "extra Vault path to grant read and list on (repeatable)")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "reruns of the whole setup after a retryable failure")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	_ = cmd.MarkFlagRequired("vault-role")
	_ = cmd.MarkFlagRequired("iam-role")

	return cmd
}

func init() {
	rootCmd.AddCommand(newSetupCmd())
}

func runSetup(ctx context.Context, opts *setupOptions, out io.Writer, log logr.Logger) (err error) {
	if opts.retries < 0 {
		return fmt.Errorf("--retries must not be negative")
	}
	if opts.metricsFile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(opts.metricsFile); werr != nil {
				log.Error(werr, "failed to write metrics textfile", "path", opts.metricsFile)
			}
		}()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	client, err := newVaultClient(ctx, cfg, log)
	if err != nil {
		return err
	}

	root, err := awscreds.NewResolver(log).Resolve(ctx, awscreds.Options{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.Endpoint,
		Verify:          cfg.AWS.VerifyCredentials,
	})
	if err != nil {
		return err
	}

	bootstrapCfg, err := cfg.BootstrapConfig(root)
	if err != nil {
		return err
	}

	identity := newIdentitySource(cfg, bootstrapCfg.KubernetesConfig, log)
	manager := bootstrap.NewManager(client, identity, bootstrapCfg, log)

	var result *bootstrap.Result
	err = retry.Do(ctx, retry.DefaultRetryConfig(opts.retries), log, func(ctx context.Context) error {
		var runErr error
		result, runErr = manager.Setup(ctx, opts.vaultRole, opts.iamRole, opts.keys...)
		return runErr
	})
	err = withPermissionHint(err)
	if result != nil {
		printSummary(out, result, err)
	}
	return err
}

// withPermissionHint points a 403 from Vault at the login identity.
func withPermissionHint(err error) error {
	if vault.IsPermissionDenied(err) {
		return fmt.Errorf("%w (the Vault identity vault-setup logs in as lacks a required capability)", err)
	}
	return err
}

// newVaultClient creates an authenticated client for a healthy Vault.
func newVaultClient(ctx context.Context, cfg *config.Config, log logr.Logger) (*vault.Client, error) {
	client, err := vault.NewClient(cfg.ClientConfig())
	if err != nil {
		return nil, err
	}

	healthy, err := client.IsHealthy(ctx)
	if err != nil {
		return nil, err
	}
	if !healthy {
		return nil, errors.New("vault is not initialized or is sealed")
	}

	if err := authenticate(ctx, client, cfg); err != nil {
		return nil, err
	}
	log.V(1).Info("authenticated to vault", "method", cfg.Vault.Auth.Method, "mount", cfg.Vault.Auth.LoginMount())
	return client, nil
}

// authenticate logs the client in with the configured method.
func authenticate(ctx context.Context, client *vault.Client, cfg *config.Config) error {
	v := &cfg.Vault
	var (
		data map[string]interface{}
		err  error
	)
	switch v.Auth.Method {
	case config.AuthMethodKubernetes:
		data, err = auth.KubernetesLoginData(v.KubernetesLogin())
	case config.AuthMethodAWS:
		data, err = auth.GenerateAWSIAMLoginData(ctx, v.AWSLogin())
	default:
		tok, err := cfg.VaultToken()
		if err != nil {
			return err
		}
		return client.AuthenticateToken(tok)
	}
	if err != nil {
		return fmt.Errorf("failed to build %s login: %w", v.Auth.Method, err)
	}
	return client.Login(ctx, v.Auth.LoginMount(), data)
}

// newIdentitySource wires cluster discovery when running in a cluster.
// Outside a cluster the identity comes from configured overrides only and
// is needed only if an auth method has to be created.
func newIdentitySource(cfg *config.Config, overrides *bootstrap.KubernetesClusterConfig, log logr.Logger) bootstrap.IdentitySource {
	var (
		clientset kubernetes.Interface
		discovery bootstrap.K8sClusterDiscovery
	)

	restConfig, err := rest.InClusterConfig()
	if err == nil {
		cs, csErr := kubernetes.NewForConfig(restConfig)
		if csErr != nil {
			log.Error(csErr, "failed to create kubernetes client, using overrides only")
		} else {
			clientset = cs
			discovery = bootstrap.NewInClusterDiscovery(cs, log)
		}
	} else {
		log.V(1).Info("not running in a kubernetes cluster", "reason", err.Error())
	}

	reviewer := token.NewReviewerFromConfig(cfg.ReviewerConfig(), clientset, log)
	return bootstrap.NewClusterIdentitySource(reviewer, discovery, overrides, log)
}

func printSummary(out io.Writer, result *bootstrap.Result, runErr error) {
	fmt.Fprintf(out, "Vault role: %s\n", result.VaultRole)
	fmt.Fprintf(out, "IAM role:   %s\n", result.IAMRole)

	for _, g := range result.Generations {
		fmt.Fprintf(out, "\nGeneration %s (auth %s, secrets %s)\n",
			g.Generation.Name, g.Generation.AuthMount, g.Generation.SecretsMount)
		fmt.Fprintf(out, "  auth backend:        %s\n", createdOrPresent(g.AuthBackendCreated))
		fmt.Fprintf(out, "  secrets engine:      %s\n", createdOrPresent(g.SecretsEngineCreated))
		fmt.Fprintf(out, "  policies written:    %s\n", listOrNone(g.PoliciesWritten))
		fmt.Fprintf(out, "  policies associated: %s\n", listOrNone(g.PoliciesAssociated))
	}

	if runErr != nil {
		fmt.Fprintf(out, "\nSetup failed: %v\n", runErr)
		if result.Changed() {
			fmt.Fprintln(out, "Changes made before the failure were kept.")
		}
	} else if result.Changed() {
		fmt.Fprintln(out, "\nVault was changed.")
	} else {
		fmt.Fprintln(out, "\nVault was already up to date.")
	}
}

func createdOrPresent(created bool) string {
	if created {
		return "created"
	}
	return "present"
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
