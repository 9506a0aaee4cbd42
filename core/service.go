package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the lifecycle hook: it resolves the workspace, credentials and
// manifest for an operation and drives one reconciliation run.
type Service struct {
	config                Config
	logger                Logger
	loggerProvider        LoggerProvider
	metricsRecorder       MetricsRecorder
	errorFactory          ErrorFactory
	errorMapper           ErrorMapper
	configProvider        ConfigProvider
	optionsResolver       OptionsResolver
	projectLoader         ProjectLoader
	identityProvider      IdentityProvider
	capabilityProvisioner CapabilityProvisioner
	manifestLoader        ManifestLoader
	clientFactory         ClientFactory
	chooser               ProviderChooser
	progress              ProgressReporter
	ledgerStore           LedgerStore
	interruptSource       InterruptSource
	nameGenerator         func() string
}

type ServiceDependencies struct {
	Logger                Logger
	LoggerProvider        LoggerProvider
	MetricsRecorder       MetricsRecorder
	ErrorFactory          ErrorFactory
	ErrorMapper           ErrorMapper
	ConfigProvider        ConfigProvider
	OptionsResolver       OptionsResolver
	ProjectLoader         ProjectLoader
	IdentityProvider      IdentityProvider
	CapabilityProvisioner CapabilityProvisioner
	ManifestLoader        ManifestLoader
	ClientFactory         ClientFactory
	ProviderChooser       ProviderChooser
	ProgressReporter      ProgressReporter
	LedgerStore           LedgerStore
	InterruptSource       InterruptSource
}

// HookResult reports what an operation did. Detach is set for run mode and
// removes the interrupt cleanup without running it.
type HookResult struct {
	Operation Operation
	Handled   bool
	Result    ReconcileResult
	Detach    func()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("events", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("events"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.nameGenerator == nil {
		builder.nameGenerator = defaultServiceBuilder(Config{}).nameGenerator
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:                finalConfig,
		logger:                logger,
		loggerProvider:        provider,
		metricsRecorder:       builder.metricsRecorder,
		errorFactory:          builder.errorFactory,
		errorMapper:           builder.errorMapper,
		configProvider:        builder.configProvider,
		optionsResolver:       builder.optionsResolver,
		projectLoader:         builder.projectLoader,
		identityProvider:      builder.identityProvider,
		capabilityProvisioner: builder.capabilityProvisioner,
		manifestLoader:        builder.manifestLoader,
		clientFactory:         builder.clientFactory,
		chooser:               builder.chooser,
		progress:              builder.progress,
		ledgerStore:           builder.ledgerStore,
		interruptSource:       builder.interruptSource,
		nameGenerator:         builder.nameGenerator,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:                s.logger,
		LoggerProvider:        s.loggerProvider,
		MetricsRecorder:       s.metricsRecorder,
		ErrorFactory:          s.errorFactory,
		ErrorMapper:           s.errorMapper,
		ConfigProvider:        s.configProvider,
		OptionsResolver:       s.optionsResolver,
		ProjectLoader:         s.projectLoader,
		IdentityProvider:      s.identityProvider,
		CapabilityProvisioner: s.capabilityProvisioner,
		ManifestLoader:        s.manifestLoader,
		ClientFactory:         s.clientFactory,
		ProviderChooser:       s.chooser,
		ProgressReporter:      s.progress,
		LedgerStore:           s.ledgerStore,
		InterruptSource:       s.interruptSource,
	}
}

// Handle runs the hook for a lifecycle operation id. Unknown operations are
// a no-op.
func (s *Service) Handle(ctx context.Context, operation string) (HookResult, error) {
	op, ok := ParseOperation(operation)
	if !ok {
		s.telemetry().logDebug(ctx, "operation ignored", map[string]any{"operation": operation})
		return HookResult{}, nil
	}
	switch op {
	case OperationDeploy:
		result, err := s.Deploy(ctx)
		return HookResult{Operation: op, Handled: true, Result: result}, err
	case OperationUndeploy:
		result, err := s.Undeploy(ctx)
		return HookResult{Operation: op, Handled: true, Result: result}, err
	default:
		result, detach, err := s.Run(ctx)
		return HookResult{Operation: op, Handled: true, Result: result, Detach: detach}, err
	}
}

func (s *Service) Deploy(ctx context.Context) (result ReconcileResult, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.telemetry().observeOperation(ctx, startedAt, "deploy", err, nil)
	}()

	run, err := s.Prepare(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}
	result, err = run.Engine.Reconcile(ctx, ExtractDesired(run.Environment.Manifest.Packages))
	return result, s.mapError(err)
}

func (s *Service) Undeploy(ctx context.Context) (result ReconcileResult, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.telemetry().observeOperation(ctx, startedAt, "undeploy", err, nil)
	}()

	run, err := s.Prepare(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}
	result, err = run.Engine.Undeploy(ctx)
	return result, s.mapError(err)
}

// Run reconciles like Deploy and then arranges for every registration found
// or created to be deleted when the session is interrupted.
func (s *Service) Run(ctx context.Context) (result ReconcileResult, detach func(), err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.telemetry().observeOperation(ctx, startedAt, "run", err, nil)
	}()

	run, err := s.Prepare(ctx)
	if err != nil {
		return ReconcileResult{}, nil, err
	}
	result, err = run.Engine.Reconcile(ctx, ExtractDesired(run.Environment.Manifest.Packages))
	if err != nil {
		return result, nil, s.mapError(err)
	}
	if s.interruptSource == nil {
		return result, func() {}, nil
	}
	registrations := cloneRegistrations(result.Registrations)
	engine := run.Engine
	detach = s.interruptSource.OnInterrupt(func(cleanupCtx context.Context) {
		cleanup := engine.Cleanup(cleanupCtx, registrations)
		s.telemetry().logInfo(cleanupCtx, "interrupt cleanup finished", map[string]any{
			"deleted":        len(cleanup.Deleted),
			"failed_deletes": len(cleanup.FailedDeletes),
		})
	})
	return result, detach, nil
}

// PreparedRun is a fully wired engine for one invocation.
type PreparedRun struct {
	Environment RunEnvironment
	Engine      *Engine
	Directory   *ProviderDirectory
}

// Prepare resolves workspace context, credentials, the required capability
// and the manifest, then wires a fresh engine. It fails with a
// configuration error before any registry call when context is missing.
func (s *Service) Prepare(ctx context.Context) (PreparedRun, error) {
	if s == nil {
		return PreparedRun{}, fmt.Errorf("core: service is not configured")
	}
	if s.projectLoader == nil {
		return PreparedRun{}, ConfigurationMissingError("project loader is not configured", nil)
	}
	project, err := s.projectLoader.LoadProject(ctx)
	if err != nil {
		return PreparedRun{}, s.mapError(err)
	}
	if strings.TrimSpace(project.OrgID) == "" {
		return PreparedRun{}, ConfigurationMissingError("project org id is missing from the workspace configuration", nil)
	}
	if s.identityProvider == nil {
		return PreparedRun{}, ConfigurationMissingError("identity provider is not configured", nil)
	}
	credentials, err := s.identityProvider.Credentials(ctx, project)
	if err != nil {
		return PreparedRun{}, s.mapError(err)
	}
	if strings.TrimSpace(credentials.IntegrationID) == "" {
		return PreparedRun{}, ConfigurationMissingError("workspace has no service integration credentials", map[string]any{
			"workspace_id": project.WorkspaceID,
		})
	}
	if s.manifestLoader == nil {
		return PreparedRun{}, ConfigurationMissingError("manifest loader is not configured", nil)
	}
	if s.clientFactory == nil {
		return PreparedRun{}, ConfigurationMissingError("client factory is not configured", nil)
	}

	if s.capabilityProvisioner != nil && strings.TrimSpace(s.config.RequiredCapability) != "" {
		if err := s.capabilityProvisioner.EnsureCapability(ctx, project, s.config.RequiredCapability); err != nil {
			return PreparedRun{}, s.mapError(err)
		}
	}

	manifest, err := s.manifestLoader.LoadManifest(ctx)
	if err != nil {
		return PreparedRun{}, s.mapError(err)
	}
	if strings.TrimSpace(manifest.Target.APIVersion) == "" {
		manifest.Target.APIVersion = s.config.Runtime.APIVersion
	}

	env := RunEnvironment{Project: project, Credentials: credentials, Manifest: manifest}
	clients, err := s.clientFactory.Clients(ctx, env)
	if err != nil {
		return PreparedRun{}, s.mapError(err)
	}
	return s.newRun(env, clients)
}

func (s *Service) newRun(env RunEnvironment, clients RunClients) (PreparedRun, error) {
	target := env.Target()

	var actual ActualStateSource
	switch s.config.ActualState {
	case ActualStateLedger:
		if s.ledgerStore == nil {
			return PreparedRun{}, ConfigurationMissingError("ledger store is required for the ledger actual state strategy", nil)
		}
		actual = NewLedgerStateSource(clients.Registry, s.ledgerStore)
	default:
		actual = NewRemoteStateSource(clients.Registry)
	}

	deps := EngineDependencies{
		Actual:          actual,
		Selector:        NewProviderSelector(s.config.PreferredProviders, s.chooser),
		Target:          target,
		NamePrefix:      s.config.RegistrationNamePrefix,
		NameGenerator:   s.nameGenerator,
		Logger:          s.logger,
		MetricsRecorder: s.metricsRecorder,
	}
	if clients.Catalog != nil {
		directory, err := NewProviderDirectory(clients.Catalog, target.OrgID, WithDirectoryProgress(s.progress))
		if err != nil {
			return PreparedRun{}, s.mapError(err)
		}
		deps.Directory = directory
	}
	if clients.ControlPlane != nil && env.Manifest.Target.Validate() == nil {
		router, err := NewRouteProvisioner(clients.ControlPlane, s.config.Routing, target, env.Manifest.Target)
		if err != nil {
			return PreparedRun{}, s.mapError(err)
		}
		deps.Router = router
	}

	engine, err := NewEngine(deps)
	if err != nil {
		return PreparedRun{}, s.mapError(err)
	}
	return PreparedRun{Environment: env, Engine: engine, Directory: deps.Directory}, nil
}

func (s *Service) telemetry() telemetry {
	if s == nil {
		return telemetry{}
	}
	return telemetry{logger: s.logger, metricsRecorder: s.metricsRecorder}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}
