/*
Package auth builds the login payloads vault-setup uses to authenticate
itself to Vault.

This file implements AWS IAM login, supporting both:
- IAM Roles for Service Accounts (IRSA) on EKS
- any other credentials the AWS SDK default chain resolves
*/
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	// DefaultAWSAuthMount is the default mount path for AWS auth in Vault
	DefaultAWSAuthMount = "aws"

	// DefaultSTSEndpoint is the global STS endpoint Vault verifies against
	// unless its AWS auth backend is configured otherwise.
	DefaultSTSEndpoint = "https://sts.amazonaws.com"

	// DefaultSTSRegion is the signing region of the global STS endpoint.
	DefaultSTSRegion = "us-east-1"

	// IAMServerIDHeader binds a signed request to one Vault server.
	IAMServerIDHeader = "X-Vault-AWS-IAM-Server-ID"

	getCallerIdentityBody = "Action=GetCallerIdentity&Version=2011-06-15"
)

// AWSLoginOptions contains options for AWS IAM login
type AWSLoginOptions struct {
	// Role is the Vault role to authenticate as
	Role string

	// Region is the STS signing region (default: us-east-1)
	Region string

	// STSEndpoint overrides the STS endpoint the request is signed for
	STSEndpoint string

	// IAMServerIDHeaderValue sets the X-Vault-AWS-IAM-Server-ID header.
	// This must match the value configured in Vault's AWS auth backend.
	IAMServerIDHeaderValue string
}

// GenerateAWSIAMLoginData generates the login data for Vault's AWS IAM auth method.
// This creates a signed STS GetCallerIdentity request that Vault replays to
// verify the AWS identity.
func GenerateAWSIAMLoginData(ctx context.Context, opts AWSLoginOptions) (map[string]interface{}, error) {
	if opts.Role == "" {
		return nil, fmt.Errorf("aws login requires a role")
	}

	region := opts.Region
	if region == "" {
		region = DefaultSTSRegion
	}
	endpoint := opts.STSEndpoint
	if endpoint == "" {
		endpoint = DefaultSTSEndpoint
	}

	awsCfg, err := loadAWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}

	req, err := signGetCallerIdentity(ctx, creds, endpoint, region, opts.IAMServerIDHeaderValue, time.Now())
	if err != nil {
		return nil, err
	}

	headers, err := encodeIAMRequestHeaders(req)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"role":                    opts.Role,
		"iam_http_request_method": req.Method,
		"iam_request_url":         base64.StdEncoding.EncodeToString([]byte(req.URL.String())),
		"iam_request_body":        base64.StdEncoding.EncodeToString([]byte(getCallerIdentityBody)),
		"iam_request_headers":     headers,
	}, nil
}

// loadAWSConfig loads AWS configuration with support for IRSA
func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error

	if region != "" {
		configOpts = append(configOpts, config.WithRegion(region))
	}

	// IRSA injects AWS_WEB_IDENTITY_TOKEN_FILE and AWS_ROLE_ARN
	if tokenFile := os.Getenv("AWS_WEB_IDENTITY_TOKEN_FILE"); tokenFile != "" {
		roleARN := os.Getenv("AWS_ROLE_ARN")
		if roleARN == "" {
			return aws.Config{}, fmt.Errorf("AWS_ROLE_ARN not set but AWS_WEB_IDENTITY_TOKEN_FILE is present")
		}

		baseCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load base AWS config: %w", err)
		}

		webIdentityProvider := stscreds.NewWebIdentityRoleProvider(
			sts.NewFromConfig(baseCfg),
			roleARN,
			stscreds.IdentityTokenFile(tokenFile),
			func(o *stscreds.WebIdentityRoleOptions) {
				if sessionName := os.Getenv("AWS_ROLE_SESSION_NAME"); sessionName != "" {
					o.RoleSessionName = sessionName
				}
			},
		)

		configOpts = append(configOpts, config.WithCredentialsProvider(webIdentityProvider))
	}

	return config.LoadDefaultConfig(ctx, configOpts...)
}

// signGetCallerIdentity builds a SigV4 signed POST of GetCallerIdentity.
func signGetCallerIdentity(
	ctx context.Context, creds aws.Credentials, endpoint, region, serverID string, signingTime time.Time,
) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid STS endpoint %q: %w", endpoint, err)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(getCallerIdentityBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build GetCallerIdentity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	if serverID != "" {
		req.Header.Set(IAMServerIDHeader, serverID)
	}

	sum := sha256.Sum256([]byte(getCallerIdentityBody))
	if err := v4.NewSigner().SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), "sts", region, signingTime); err != nil {
		return nil, fmt.Errorf("failed to sign GetCallerIdentity: %w", err)
	}
	return req, nil
}

// encodeIAMRequestHeaders returns the signed headers as base64 JSON.
func encodeIAMRequestHeaders(req *http.Request) (string, error) {
	headers := map[string][]string{"Host": {req.URL.Host}}
	for k, v := range req.Header {
		headers[k] = v
	}

	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("failed to encode IAM request headers: %w", err)
	}
	return base64.StdEncoding.EncodeToString(headersJSON), nil
}
