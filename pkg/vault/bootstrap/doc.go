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

// Package bootstrap provisions Vault so that Kubernetes workloads can obtain
// AWS credentials.
//
// # Overview
//
// Each generation owns a Kubernetes auth method and an AWS secrets engine
// mounted at its own paths. For a workload role, setup makes sure that in
// every generation:
//
//  1. The Kubernetes auth method is enabled and trusts the cluster
//  2. The AWS secrets engine is mounted with current root credentials
//  3. A policy grants the role access to its STS credentials path
//  4. The policy is attached to the role without dropping existing policies
//  5. The STS role maps to the IAM role to assume
//
// Every step checks current state first, so setup is safe to rerun against a
// partially provisioned Vault. Nothing is ever deleted.
//
// # Usage
//
//	manager := NewManager(vaultClient, identitySource, &Config{}, log)
//	result, err := manager.Setup(ctx, "payments", "arn:aws:iam::123456789012:role/payments",
//	    "secret/data/payments/db")
//	if err != nil {
//	    return err
//	}
//
// # Setup Flow
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│ for each generation (v1, v2)                                     │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│ 1. Auth Backend                                                  │
//	│    - List auth mounts, skip if present                           │
//	│    - Resolve identity (reviewer JWT, CA, issuer, host)           │
//	│    - Enable kubernetes auth, write auth/<mount>/config           │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│ 2. Secrets Engine                                                │
//	│    - List secrets mounts, enable aws if absent                   │
//	│    - Always write <mount>/config/root                            │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│ 3. Role                                                          │
//	│    - Write policy <role>-<mount> {read, update} on sts path      │
//	│    - Attach policy to auth role (union with existing)            │
//	│    - Write <mount>/roles/<role> (assumed_role)                   │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│ 4. Extra keys (optional, after all generations)                  │
//	│    - Write policy <role>-<generation>-keys {read, list}          │
//	│    - Attach policy to auth role                                  │
//	└─────────────────────────────────────────────────────────────────┘
package bootstrap
