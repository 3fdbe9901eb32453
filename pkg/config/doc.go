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
Package config loads the vault-setup configuration.

Configuration comes from an optional YAML file, then defaults, then
environment variables. Environment variables always win:

	VAULT_ADDR                 vault.address
	VAULT_TOKEN                vault.token
	VAULT_SETUP_AUTH_METHOD    vault.auth.method
	VAULT_CACERT               vault.ca_cert
	VAULT_SKIP_VERIFY          vault.skip_verify
	VAULT_CLIENT_TIMEOUT       vault.timeout
	AWS_REGION                 aws.region (AWS_DEFAULT_REGION is also read)
	AWS_ACCESS_KEY_ID          aws.access_key_id
	AWS_SECRET_ACCESS_KEY      aws.secret_access_key
	VAULT_SETUP_AWS_ENDPOINT   aws.endpoint
	VAULT_SETUP_K8S_HOST       kubernetes.host

A minimal file:

	vault:
	  address: https://vault.example.com:8200
	aws:
	  region: ap-southeast-2
	  endpoint: http://localstack:4566
	generations:
	  - name: v1
	    auth_mount: kubernetes-v1
	    secrets_mount: aws-v1

The loaded Config converts into the vault client, bootstrap and token
reviewer configurations.
*/
package config
