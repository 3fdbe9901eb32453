//go:build integration

/*
Package integration provides testcontainers-based integration tests for vault-setup.

Tests use the naming convention: INT-SETUP{NN}_{Description}
*/
package integration

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hpcsc/vault-setup/pkg/vault"
	"github.com/hpcsc/vault-setup/pkg/vault/bootstrap"
)

const (
	vaultRole = "app"
	iamRole   = "arn:aws:iam::123456789012:role/app"
)

type staticIdentity struct {
	identity *bootstrap.Identity
}

func (s staticIdentity) Identity(ctx context.Context) (*bootstrap.Identity, error) {
	id := *s.identity
	return &id, nil
}

func newIdentity() staticIdentity {
	reviewer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "https://kubernetes.default.svc.cluster.local",
		Subject:   "system:serviceaccount:vault:reviewer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("integration"))
	Expect(err).NotTo(HaveOccurred())

	return staticIdentity{identity: &bootstrap.Identity{
		ReviewerJWT: reviewer,
		Host:        "https://kubernetes.default.svc:443",
		Issuer:      "https://kubernetes.default.svc.cluster.local",
	}}
}

// newManager provisions under mounts unique to the test so tests sharing
// the container stay isolated.
func newManager(client *vault.Client, prefix string) (bootstrap.Manager, *bootstrap.Config) {
	cfg := &bootstrap.Config{
		Generations: []bootstrap.Generation{
			{Name: "v1", AuthMount: prefix + "-kubernetes-v1", SecretsMount: prefix + "-aws-v1"},
			{Name: "v2", AuthMount: prefix + "-kubernetes-v2", SecretsMount: prefix + "-aws-v2"},
		},
		AWS: vault.AWSRootConfig{
			AccessKey:   "AKIAINTEGRATION",
			SecretKey:   "integration-secret",
			Region:      "us-east-1",
			IAMEndpoint: "http://localstack:4566",
			STSEndpoint: "http://localstack:4566",
		},
	}
	return bootstrap.NewManager(client, newIdentity(), cfg, logr.Discard()), cfg
}

var _ = Describe("Setup Integration Tests", func() {
	var (
		ctx    context.Context
		client *vault.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(testVault).NotTo(BeNil(), "Vault container not started")

		var err error
		client, err = testVault.Client()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("INT-SETUP01: Provision both generations", func() {
		It("should provision mounts, policies and bindings and converge on rerun", func() {
			manager, cfg := newManager(client, "converge")

			By("Running setup against an empty Vault")
			result, err := manager.Setup(ctx, vaultRole, iamRole, "secret/data/app")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Changed()).To(BeTrue())

			authMounts, err := client.ListAuthMounts(ctx)
			Expect(err).NotTo(HaveOccurred())
			secretsMounts, err := client.ListSecretsMounts(ctx)
			Expect(err).NotTo(HaveOccurred())

			for _, gen := range cfg.Generations {
				By("Verifying generation " + gen.Name)
				Expect(vault.HasMount(authMounts, gen.AuthMount)).To(BeTrue(), "auth mount %s", gen.AuthMount)
				Expect(vault.HasMount(secretsMounts, gen.SecretsMount)).To(BeTrue(), "secrets mount %s", gen.SecretsMount)

				// Vault stores role policies sorted.
				policies, err := client.ReadAuthRolePolicies(ctx, gen.AuthMount, vaultRole)
				Expect(err).NotTo(HaveOccurred())
				Expect(policies).To(ConsistOf(
					bootstrap.PolicyName(vaultRole, gen.SecretsMount),
					bootstrap.KeyPolicyName(vaultRole, gen),
				))

				hcl, err := client.ReadPolicy(ctx, bootstrap.PolicyName(vaultRole, gen.SecretsMount))
				Expect(err).NotTo(HaveOccurred())
				Expect(hcl).To(ContainSubstring(vault.STSCredentialsPath(gen.SecretsMount, vaultRole)))
			}

			By("Running setup again")
			again, err := manager.Setup(ctx, vaultRole, iamRole, "secret/data/app")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Changed()).To(BeFalse(), "second run changed vault: %+v", again.Generations)
		})
	})

	Describe("INT-SETUP02: Pre-existing role", func() {
		It("should keep policies bound by someone else", func() {
			manager, cfg := newManager(client, "preserve")
			v1 := cfg.Generations[0]

			By("Creating the auth mount and a role bound to a foreign policy")
			Expect(client.EnableAuth(ctx, v1.AuthMount, vault.AuthTypeKubernetes, "pre-existing")).To(Succeed())
			Expect(client.WriteAuthRole(ctx, v1.AuthMount, vaultRole, vault.AuthRole{
				BoundServiceAccountNames:      []string{"*"},
				BoundServiceAccountNamespaces: []string{"*"},
				Policies:                      []string{"team-shared"},
				TTL:                           "1h",
			})).To(Succeed())

			By("Running setup")
			result, err := manager.Setup(ctx, vaultRole, iamRole)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Generations[0].AuthBackendCreated).To(BeFalse())

			policies, err := client.ReadAuthRolePolicies(ctx, v1.AuthMount, vaultRole)
			Expect(err).NotTo(HaveOccurred())
			Expect(policies).To(ConsistOf("team-shared", bootstrap.PolicyName(vaultRole, v1.SecretsMount)))
		})
	})

	Describe("INT-SETUP03: Key policies", func() {
		It("should grant read and list on extra keys as seen by the vault CLI", func() {
			manager, cfg := newManager(client, "keys")

			_, err := manager.Setup(ctx, vaultRole, iamRole, "secret/data/app", "secret/metadata/app")
			Expect(err).NotTo(HaveOccurred())

			name := bootstrap.KeyPolicyName(vaultRole, cfg.Generations[1])
			code, out, err := testVault.Exec(ctx, []string{"policy", "read", name})
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(0), out)
			Expect(out).To(ContainSubstring(`path "secret/data/app"`))
			Expect(out).To(ContainSubstring(`path "secret/metadata/app"`))
			Expect(strings.Count(out, `capabilities = ["read", "list"]`)).To(Equal(2))
		})
	})
})
