// vault-setup idempotently provisions Vault for workloads that need AWS
// credentials: a Kubernetes auth method and an AWS secrets engine per
// generation, the STS role for a workload, and the policies binding the two.
//
// Usage:
//
//	# Provision v1 and v2 for the "billing" role
//	vault-setup setup --vault-role billing --iam-role arn:aws:iam::123456789012:role/billing
//
//	# Also grant read/list on extra key paths, retrying a sealed Vault
//	vault-setup setup -c vault-setup.yaml --vault-role billing \
//	    --iam-role arn:aws:iam::123456789012:role/billing \
//	    --key secret/data/billing --retries 5
//
//	# Show version information
//	vault-setup version
package main

func main() {
	Execute()
}
