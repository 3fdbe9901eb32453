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

package bootstrap

import (
	"context"
	"strings"

	"github.com/hpcsc/vault-setup/pkg/vault"
)

// fakeStore is an in-memory Vault. Calls are recorded as "Method:target".
// Any call listed in failOn returns that error without changing state.
type fakeStore struct {
	authMounts    map[string]string
	secretsMounts map[string]string
	authConfigs   map[string]vault.KubernetesAuthConfig
	authRoles     map[string]vault.AuthRole
	rootConfigs   map[string]vault.AWSRootConfig
	stsRoles      map[string]vault.STSRole
	policies      map[string]string

	calls  []string
	failOn map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		authMounts:    map[string]string{"token": "token"},
		secretsMounts: map[string]string{"secret": "kv", "sys": "system"},
		authConfigs:   map[string]vault.KubernetesAuthConfig{},
		authRoles:     map[string]vault.AuthRole{},
		rootConfigs:   map[string]vault.AWSRootConfig{},
		stsRoles:      map[string]vault.STSRole{},
		policies:      map[string]string{},
		failOn:        map[string]error{},
	}
}

// storeState is a comparable snapshot of everything the fake holds.
type storeState struct {
	authMounts    map[string]string
	secretsMounts map[string]string
	authConfigs   map[string]vault.KubernetesAuthConfig
	authRoles     map[string]vault.AuthRole
	rootConfigs   map[string]vault.AWSRootConfig
	stsRoles      map[string]vault.STSRole
	policies      map[string]string
}

func (f *fakeStore) snapshot() storeState {
	s := storeState{
		authMounts:    map[string]string{},
		secretsMounts: map[string]string{},
		authConfigs:   map[string]vault.KubernetesAuthConfig{},
		authRoles:     map[string]vault.AuthRole{},
		rootConfigs:   map[string]vault.AWSRootConfig{},
		stsRoles:      map[string]vault.STSRole{},
		policies:      map[string]string{},
	}
	for k, v := range f.authMounts {
		s.authMounts[k] = v
	}
	for k, v := range f.secretsMounts {
		s.secretsMounts[k] = v
	}
	for k, v := range f.authConfigs {
		s.authConfigs[k] = v
	}
	for k, v := range f.authRoles {
		v.Policies = append([]string(nil), v.Policies...)
		s.authRoles[k] = v
	}
	for k, v := range f.rootConfigs {
		s.rootConfigs[k] = v
	}
	for k, v := range f.stsRoles {
		s.stsRoles[k] = v
	}
	for k, v := range f.policies {
		s.policies[k] = v
	}
	return s
}

func (f *fakeStore) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

// mutations returns the recorded Enable and Write calls.
func (f *fakeStore) mutations() []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, "Enable") || strings.HasPrefix(c, "Write") {
			out = append(out, c)
		}
	}
	return out
}

// callsMatching returns recorded calls containing substr.
func (f *fakeStore) callsMatching(substr string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) setRolePolicies(mount, role string, policies ...string) {
	f.authRoles[mount+"/"+role] = vault.AuthRole{
		BoundServiceAccountNames:      []string{"*"},
		BoundServiceAccountNamespaces: []string{"*"},
		Policies:                      policies,
		TTL:                           "1h",
	}
}

func (f *fakeStore) rolePolicies(mount, role string) []string {
	r, ok := f.authRoles[mount+"/"+role]
	if !ok {
		return nil
	}
	return r.Policies
}

func mountList(m map[string]string) []vault.Mount {
	out := make([]vault.Mount, 0, len(m))
	for p, t := range m {
		out = append(out, vault.Mount{Path: p, Type: t})
	}
	return out
}

func (f *fakeStore) ListAuthMounts(ctx context.Context) ([]vault.Mount, error) {
	if err := f.record("ListAuthMounts"); err != nil {
		return nil, err
	}
	return mountList(f.authMounts), nil
}

func (f *fakeStore) EnableAuth(ctx context.Context, path, methodType, description string) error {
	path = vault.NormalizeMountPath(path)
	if err := f.record("EnableAuth:" + path); err != nil {
		return err
	}
	f.authMounts[path] = methodType
	return nil
}

func (f *fakeStore) WriteKubernetesAuthConfig(ctx context.Context, mount string, cfg vault.KubernetesAuthConfig) error {
	if err := f.record("WriteKubernetesAuthConfig:" + mount); err != nil {
		return err
	}
	f.authConfigs[mount] = cfg
	return nil
}

func (f *fakeStore) ReadAuthRolePolicies(ctx context.Context, mount, roleName string) ([]string, error) {
	if err := f.record("ReadAuthRolePolicies:" + mount + "/" + roleName); err != nil {
		return nil, err
	}
	policies := f.rolePolicies(mount, roleName)
	if policies == nil {
		return nil, nil
	}
	return append([]string(nil), policies...), nil
}

func (f *fakeStore) WriteAuthRole(ctx context.Context, mount, roleName string, role vault.AuthRole) error {
	if err := f.record("WriteAuthRole:" + mount + "/" + roleName); err != nil {
		return err
	}
	role.Policies = append([]string(nil), role.Policies...)
	f.authRoles[mount+"/"+roleName] = role
	return nil
}

func (f *fakeStore) ListSecretsMounts(ctx context.Context) ([]vault.Mount, error) {
	if err := f.record("ListSecretsMounts"); err != nil {
		return nil, err
	}
	return mountList(f.secretsMounts), nil
}

func (f *fakeStore) EnableSecretsEngine(ctx context.Context, path, engineType, description string) error {
	path = vault.NormalizeMountPath(path)
	if err := f.record("EnableSecretsEngine:" + path); err != nil {
		return err
	}
	f.secretsMounts[path] = engineType
	return nil
}

func (f *fakeStore) WriteAWSRootConfig(ctx context.Context, mount string, cfg vault.AWSRootConfig) error {
	if err := f.record("WriteAWSRootConfig:" + mount); err != nil {
		return err
	}
	f.rootConfigs[mount] = cfg
	return nil
}

func (f *fakeStore) WriteSTSRole(ctx context.Context, mount, roleName string, role vault.STSRole) error {
	if err := f.record("WriteSTSRole:" + mount + "/" + roleName); err != nil {
		return err
	}
	f.stsRoles[mount+"/"+roleName] = role
	return nil
}

func (f *fakeStore) WritePolicy(ctx context.Context, name, hcl string) error {
	if err := f.record("WritePolicy:" + name); err != nil {
		return err
	}
	f.policies[name] = hcl
	return nil
}

// fakeIdentity returns a fixed identity and counts lookups.
type fakeIdentity struct {
	identity *Identity
	err      error
	calls    int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		identity: &Identity{
			ReviewerJWT: "eyJ.reviewer.jwt",
			CACert:      "-----BEGIN CERTIFICATE-----\ntest\n-----END CERTIFICATE-----",
			Issuer:      "https://kubernetes.default.svc.cluster.local",
			Host:        "https://10.96.0.1:443",
		},
	}
}

func (f *fakeIdentity) Identity(ctx context.Context) (*Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	id := *f.identity
	return &id, nil
}

var (
	_ StoreClient    = (*fakeStore)(nil)
	_ IdentitySource = (*fakeIdentity)(nil)
)
