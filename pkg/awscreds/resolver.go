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

/*
Package awscreds resolves the long-lived AWS credentials written to each
AWS secrets engine's root config.

Static keys from configuration win. Otherwise the AWS SDK default chain is
used (environment, shared config and credentials files). Vault's root
config has no session token, so temporary credentials are rejected.
*/
package awscreds

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"

	"github.com/hpcsc/vault-setup/pkg/vault"
)

// ErrTemporaryCredentials is returned when the resolved credentials carry a
// session token.
var ErrTemporaryCredentials = errors.New("temporary credentials cannot be used as a secrets engine root config")

// Options selects how root credentials are obtained.
type Options struct {
	Region string

	// AccessKeyID and SecretAccessKey are used as-is when both are set.
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the IAM and STS endpoints.
	Endpoint string

	// Verify calls STS GetCallerIdentity with the resolved credentials.
	Verify bool
}

type loadConfigFunc func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error)

// Resolver resolves AWS root credentials.
type Resolver struct {
	loadConfig loadConfigFunc
	log        logr.Logger
}

// NewResolver creates a Resolver backed by the AWS SDK default config loader.
func NewResolver(log logr.Logger) *Resolver {
	return &Resolver{
		loadConfig: config.LoadDefaultConfig,
		log:        log.WithName("aws-credentials"),
	}
}

// Resolve returns the root config to write to every AWS secrets engine.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (vault.AWSRootConfig, error) {
	awsCfg, err := r.load(ctx, opts)
	if err != nil {
		return vault.AWSRootConfig{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Credentials == nil {
		return vault.AWSRootConfig{}, fmt.Errorf("no AWS credentials provider configured")
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return vault.AWSRootConfig{}, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}
	if creds.SessionToken != "" {
		return vault.AWSRootConfig{}, fmt.Errorf("%w (source: %s)", ErrTemporaryCredentials, creds.Source)
	}

	r.log.Info("resolved AWS root credentials",
		"source", creds.Source,
		"accessKeyID", maskAccessKey(creds.AccessKeyID),
		"region", awsCfg.Region,
	)

	if opts.Verify {
		if err := r.verify(ctx, awsCfg, opts.Endpoint); err != nil {
			return vault.AWSRootConfig{}, err
		}
	}

	return vault.AWSRootConfig{
		AccessKey:   creds.AccessKeyID,
		SecretKey:   creds.SecretAccessKey,
		Region:      awsCfg.Region,
		IAMEndpoint: opts.Endpoint,
		STSEndpoint: opts.Endpoint,
	}, nil
}

func (r *Resolver) load(ctx context.Context, opts Options) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error

	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	return r.loadConfig(ctx, loadOpts...)
}

// verify checks the credentials against STS.
func (r *Resolver) verify(ctx context.Context, awsCfg aws.Config, endpoint string) error {
	client := sts.NewFromConfig(awsCfg, func(o *sts.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("failed to verify AWS credentials: %w", err)
	}

	r.log.Info("verified AWS root credentials",
		"account", aws.ToString(out.Account),
		"arn", aws.ToString(out.Arn),
	)
	return nil
}

// maskAccessKey keeps the first four characters of an access key ID.
func maskAccessKey(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return id[:4] + "****"
}
