/*
Package auth builds the login payloads vault-setup uses to authenticate
itself to Vault when a static token is not configured.

# Kubernetes

The pod's service account token is presented to a Kubernetes auth mount:

	data, err := auth.KubernetesLoginData(auth.KubernetesLoginOptions{
	    Role: "vault-setup",
	})
	err = client.Login(ctx, auth.DefaultKubernetesAuthMount, data)

# AWS IAM

A signed sts:GetCallerIdentity request is presented to an AWS auth mount.
Credentials come from the AWS SDK default chain, including IRSA web
identity tokens on EKS:

	data, err := auth.GenerateAWSIAMLoginData(ctx, auth.AWSLoginOptions{
	    Role:                   "vault-setup",
	    IAMServerIDHeaderValue: "vault.example.com",
	})
	err = client.Login(ctx, auth.DefaultAWSAuthMount, data)
*/
package auth
