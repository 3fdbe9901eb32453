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

// Package metrics provides Prometheus metrics for vault-setup.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Provisioning steps.
const (
	StepAuthBackend   = "auth_backend"
	StepSecretsEngine = "secrets_engine"
	StepRole          = "role"
	StepKeyPolicy     = "key_policy"
)

// Kinds of Vault writes.
const (
	WriteAuthConfig = "auth_config"
	WriteAuthRole   = "auth_role"
	WriteRootConfig = "root_config"
	WriteSTSRole    = "sts_role"
	WritePolicy     = "policy"
)

const namespace = "vault_setup"

var (
	// StepTotal counts provisioning steps by generation and result.
	StepTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "total",
			Help:      "Total number of provisioning steps run",
		},
		[]string{"generation", "step", "result"},
	)

	// VaultWritesTotal counts writes made to Vault by kind.
	VaultWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "writes_total",
			Help:      "Total number of successful Vault writes",
		},
		[]string{"kind"},
	)

	// MountsCreatedTotal counts auth methods and secrets engines enabled.
	MountsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "mounts_created_total",
			Help:      "Total number of auth methods and secrets engines enabled",
		},
		[]string{"type"},
	)

	// PolicyAssociationsTotal counts policy association checks.
	PolicyAssociationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "associations_total",
			Help:      "Total number of policy association checks (changed=true when the role was rewritten)",
		},
		[]string{"changed"},
	)

	// SetupRunsTotal counts setup runs by result.
	SetupRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "setup",
			Name:      "runs_total",
			Help:      "Total number of setup runs",
		},
		[]string{"result"},
	)

	// SetupDurationSeconds observes how long setup runs take.
	SetupDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "setup",
			Name:      "duration_seconds",
			Help:      "Duration of setup runs",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// LastSuccessTimestamp is the unix time of the last successful run.
	LastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "setup",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful setup run",
		},
	)
)

func init() {
	// Register all metrics with the controller-runtime metrics registry
	metrics.Registry.MustRegister(
		StepTotal,
		VaultWritesTotal,
		MountsCreatedTotal,
		PolicyAssociationsTotal,
		SetupRunsTotal,
		SetupDurationSeconds,
		LastSuccessTimestamp,
	)
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}

// IncrementStep increments the step counter.
func IncrementStep(generation, step string, success bool) {
	StepTotal.WithLabelValues(generation, step, result(success)).Inc()
}

// IncrementVaultWrite increments the write counter for kind.
func IncrementVaultWrite(kind string) {
	VaultWritesTotal.WithLabelValues(kind).Inc()
}

// IncrementMountCreated increments the mount counter for a backend type.
func IncrementMountCreated(mountType string) {
	MountsCreatedTotal.WithLabelValues(mountType).Inc()
}

// IncrementPolicyAssociation records a policy association check.
func IncrementPolicyAssociation(changed bool) {
	PolicyAssociationsTotal.WithLabelValues(fmt.Sprintf("%t", changed)).Inc()
}

// ObserveSetupRun records the outcome and duration of a setup run.
func ObserveSetupRun(success bool, duration time.Duration) {
	SetupRunsTotal.WithLabelValues(result(success)).Inc()
	SetupDurationSeconds.Observe(duration.Seconds())
	if success {
		LastSuccessTimestamp.SetToCurrentTime()
	}
}

// WriteTextfile writes all registered metrics to path in the text
// exposition format, for the node exporter textfile collector. The file is
// replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, metrics.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
