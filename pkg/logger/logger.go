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

// Package logger provides structured logging utilities for vault-setup.
// It defines standard log fields and helper functions for consistent logging
// across provisioning steps.
package logger

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Standard log field keys.
const (
	// KeyStep identifies the provisioning step
	KeyStep = "step"

	// KeyGeneration identifies the generation being provisioned
	KeyGeneration = "generation"

	// KeyMount identifies the auth or secrets mount path
	KeyMount = "mount"

	// KeyVaultPath identifies the Vault path being accessed
	KeyVaultPath = "vaultPath"

	// KeyVaultPolicy identifies the Vault policy name
	KeyVaultPolicy = "vaultPolicy"

	// KeyVaultRole identifies the Vault role name
	KeyVaultRole = "vaultRole"

	// KeyIAMRole identifies the AWS IAM role ARN
	KeyIAMRole = "iamRole"

	// KeyOperation identifies the operation being performed
	KeyOperation = "operation"

	// KeyDuration records the time taken for an operation
	KeyDuration = "duration"

	// KeyError includes error details
	KeyError = "error"

	// KeyRetryCount tracks retry attempts
	KeyRetryCount = "retryCount"
)

// Operation types for logging
const (
	OpEnable = "enable"
	OpWrite  = "write"
	OpSetup  = "setup"
)

// New builds the root logger. Development mode logs human-readable lines at
// debug verbosity; otherwise JSON at info.
func New(development bool) logr.Logger {
	return zap.New(zap.UseDevMode(development))
}

// StepLogger wraps a logr.Logger with the context of one provisioning step.
type StepLogger struct {
	logr.Logger
	startTime time.Time
}

// NewStepLogger creates a logger for a step of a generation, based on the
// logger stored in ctx.
func NewStepLogger(ctx context.Context, step, generation string) *StepLogger {
	l := log.FromContext(ctx).WithValues(
		KeyStep, step,
		KeyGeneration, generation,
	)

	return &StepLogger{
		Logger:    l,
		startTime: time.Now(),
	}
}

// Duration returns the elapsed time since the logger was created.
func (s *StepLogger) Duration() time.Duration {
	return time.Since(s.startTime)
}

// InfoWithDuration logs an info message with the elapsed duration.
func (s *StepLogger) InfoWithDuration(msg string, keysAndValues ...interface{}) {
	s.Info(msg, append(keysAndValues, KeyDuration, s.Duration().String())...)
}

// ErrorWithDuration logs an error with the elapsed duration.
func (s *StepLogger) ErrorWithDuration(err error, msg string, keysAndValues ...interface{}) {
	s.Error(err, msg, append(keysAndValues, KeyDuration, s.Duration().String())...)
}

// V returns a logger at the specified verbosity level.
func (s *StepLogger) V(level int) *StepLogger {
	return &StepLogger{
		Logger:    s.Logger.V(level),
		startTime: s.startTime,
	}
}

// WithValues returns a new logger with additional key-value pairs.
func (s *StepLogger) WithValues(keysAndValues ...interface{}) *StepLogger {
	return &StepLogger{
		Logger:    s.Logger.WithValues(keysAndValues...),
		startTime: s.startTime,
	}
}

// LogStepStart logs the start of a step.
func (s *StepLogger) LogStepStart() {
	s.V(1).Info("starting step")
}

// LogStepSuccess logs successful completion of a step.
func (s *StepLogger) LogStepSuccess() {
	s.InfoWithDuration("step completed")
}

// LogStepError logs a failed step.
func (s *StepLogger) LogStepError(err error) {
	s.ErrorWithDuration(err, "step failed")
}

// IntoContext stores l in ctx for NewStepLogger.
func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return log.IntoContext(ctx, l)
}

// WithOperation adds operation context to an existing logger.
func WithOperation(l logr.Logger, op string) logr.Logger {
	return l.WithValues(KeyOperation, op)
}

// WithGeneration adds generation context to an existing logger.
func WithGeneration(l logr.Logger, generation string) logr.Logger {
	return l.WithValues(KeyGeneration, generation)
}

// WithDuration adds duration context to an existing logger.
func WithDuration(l logr.Logger, d time.Duration) logr.Logger {
	return l.WithValues(KeyDuration, d.String())
}
