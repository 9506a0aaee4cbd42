package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
	"github.com/google/uuid"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig         Config
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

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithProjectLoader(loader ProjectLoader) Option {
	return func(b *serviceBuilder) {
		b.projectLoader = loader
	}
}

func WithIdentityProvider(provider IdentityProvider) Option {
	return func(b *serviceBuilder) {
		b.identityProvider = provider
	}
}

func WithCapabilityProvisioner(provisioner CapabilityProvisioner) Option {
	return func(b *serviceBuilder) {
		b.capabilityProvisioner = provisioner
	}
}

func WithManifestLoader(loader ManifestLoader) Option {
	return func(b *serviceBuilder) {
		b.manifestLoader = loader
	}
}

func WithClientFactory(factory ClientFactory) Option {
	return func(b *serviceBuilder) {
		b.clientFactory = factory
	}
}

func WithProviderChooser(chooser ProviderChooser) Option {
	return func(b *serviceBuilder) {
		b.chooser = chooser
	}
}

func WithProgressReporter(progress ProgressReporter) Option {
	return func(b *serviceBuilder) {
		b.progress = progress
	}
}

// WithLedgerStore is consulted only when actual_state is "ledger".
func WithLedgerStore(store LedgerStore) Option {
	return func(b *serviceBuilder) {
		b.ledgerStore = store
	}
}

func WithInterruptSource(source InterruptSource) Option {
	return func(b *serviceBuilder) {
		b.interruptSource = source
	}
}

// WithNameGenerator overrides the unique suffix used in registration names.
func WithNameGenerator(generator func() string) Option {
	return func(b *serviceBuilder) {
		b.nameGenerator = generator
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("events", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		interruptSource: NewSignalInterruptSource(),
		nameGenerator:   uuid.NewString,
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return eventsErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	normalizePreferredProviders(raw)
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalizePreferredProviders turns the PREFERRED_PROVIDERS style comma list
// into a slice before decoding.
func normalizePreferredProviders(raw map[string]any) {
	if raw == nil {
		return
	}
	if value, ok := raw["preferred_providers"].(string); ok {
		raw["preferred_providers"] = ParsePreferredProviders(value)
	}
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString := func(target map[string]any, key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}

	putString(layer, "service_name", cfg.ServiceName)
	putString(layer, "actual_state", cfg.ActualState)
	putString(layer, "required_capability", cfg.RequiredCapability)
	putString(layer, "registration_name_prefix", cfg.RegistrationNamePrefix)
	if includeZero || len(cfg.PreferredProviders) > 0 {
		layer["preferred_providers"] = append([]string(nil), cfg.PreferredProviders...)
	}

	routing := map[string]any{}
	putString(routing, "handler_template", cfg.Routing.HandlerTemplate)
	putString(routing, "bound_package", cfg.Routing.BoundPackage)
	putString(routing, "dispatch_package", cfg.Routing.DispatchPackage)
	putString(routing, "sync_handler", cfg.Routing.SyncHandler)
	putString(routing, "handler_action", cfg.Routing.HandlerAction)
	putString(routing, "validate_action", cfg.Routing.ValidateAction)
	putString(routing, "custom_sequence_prefix", cfg.Routing.CustomSequencePrefix)
	putString(routing, "client_id_param", cfg.Routing.ClientIDParam)
	if len(routing) > 0 {
		layer["routing"] = routing
	}

	registry := map[string]any{}
	putString(registry, "base_url", cfg.Registry.BaseURL)
	if includeZero || cfg.Registry.TimeoutSeconds > 0 {
		registry["timeout_seconds"] = cfg.Registry.TimeoutSeconds
	}
	if len(registry) > 0 {
		layer["registry"] = registry
	}

	runtime := map[string]any{}
	putString(runtime, "api_version", cfg.Runtime.APIVersion)
	if len(runtime) > 0 {
		layer["runtime"] = runtime
	}

	ledger := map[string]any{}
	putString(ledger, "driver", cfg.Ledger.Driver)
	putString(ledger, "dsn", cfg.Ledger.DSN)
	if len(ledger) > 0 {
		layer["ledger"] = ledger
	}
	return layer
}
