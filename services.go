// Package registrations reconciles webhook event registrations against the
// listener relations declared in an application manifest.
package registrations

import "github.com/goliatone/go-event-registrations/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type HookResult = core.HookResult

type ReconcileResult = core.ReconcileResult

type Operation = core.Operation

type RunEnvironment = core.RunEnvironment

type RunClients = core.RunClients

type ClientFactoryFunc = core.ClientFactoryFunc

const (
	OperationDeploy   = core.OperationDeploy
	OperationUndeploy = core.OperationUndeploy
	OperationRun      = core.OperationRun
)

var (
	WithLogger                = core.WithLogger
	WithLoggerProvider        = core.WithLoggerProvider
	WithMetricsRecorder       = core.WithMetricsRecorder
	WithErrorFactory          = core.WithErrorFactory
	WithErrorMapper           = core.WithErrorMapper
	WithConfigProvider        = core.WithConfigProvider
	WithOptionsResolver       = core.WithOptionsResolver
	WithProjectLoader         = core.WithProjectLoader
	WithIdentityProvider      = core.WithIdentityProvider
	WithCapabilityProvisioner = core.WithCapabilityProvisioner
	WithManifestLoader        = core.WithManifestLoader
	WithClientFactory         = core.WithClientFactory
	WithProviderChooser       = core.WithProviderChooser
	WithProgressReporter      = core.WithProgressReporter
	WithLedgerStore           = core.WithLedgerStore
	WithInterruptSource       = core.WithInterruptSource
	WithNameGenerator         = core.WithNameGenerator
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
