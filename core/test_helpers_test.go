package core

import (
	"context"
	"fmt"
	"sync"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// memoryRegistry is an in-memory registry keyed by registration id.
type memoryRegistry struct {
	mu            sync.Mutex
	next          int
	registrations []Registration
	created       []RegistrationSpec
	deleted       []string
	listCalls     int
	failDelete    map[string]error
	failCreate    error
	failList      error
}

func newMemoryRegistry(existing ...Registration) *memoryRegistry {
	return &memoryRegistry{
		registrations: append([]Registration(nil), existing...),
		failDelete:    map[string]error{},
	}
}

func (r *memoryRegistry) ListRegistrations(context.Context, string, string) ([]Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.failList != nil {
		return nil, r.failList
	}
	return append([]Registration(nil), r.registrations...), nil
}

func (r *memoryRegistry) CreateRegistration(_ context.Context, _ string, _ string, spec RegistrationSpec) (Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return Registration{}, r.failCreate
	}
	r.next++
	r.created = append(r.created, spec)
	registration := Registration{
		ID:            fmt.Sprintf("reg_%d", r.next),
		ClientID:      spec.ClientID,
		Name:          spec.Name,
		Description:   spec.Description,
		WebhookURL:    spec.WebhookURL,
		DeliveryType:  spec.DeliveryType,
		RuntimeAction: spec.RuntimeAction,
		Events:        append([]EventOfInterest(nil), spec.Events...),
	}
	r.registrations = append(r.registrations, registration)
	return registration, nil
}

func (r *memoryRegistry) DeleteRegistration(_ context.Context, _ string, _ string, registrationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, registrationID)
	if err := r.failDelete[registrationID]; err != nil {
		return err
	}
	kept := r.registrations[:0]
	for _, registration := range r.registrations {
		if registration.ID != registrationID {
			kept = append(kept, registration)
		}
	}
	r.registrations = kept
	return nil
}

type countingCatalog struct {
	mu              sync.Mutex
	providers       []Provider
	providerCalls   int
	eventCodeCalls  int
	failProviders   error
	failEventCodeID string
}

func newCountingCatalog(providers ...Provider) *countingCatalog {
	return &countingCatalog{providers: providers}
}

func (c *countingCatalog) ListProviders(context.Context, string) ([]ProviderSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providerCalls++
	if c.failProviders != nil {
		return nil, c.failProviders
	}
	out := make([]ProviderSummary, 0, len(c.providers))
	for _, provider := range c.providers {
		out = append(out, ProviderSummary{ID: provider.ID, Label: provider.Label, InstanceID: provider.InstanceID})
	}
	return out, nil
}

func (c *countingCatalog) ListEventCodes(_ context.Context, providerID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventCodeCalls++
	if providerID == c.failEventCodeID {
		return nil, fmt.Errorf("event metadata unavailable for %s", providerID)
	}
	for _, provider := range c.providers {
		if provider.ID == providerID {
			return append([]string(nil), provider.EventCodes...), nil
		}
	}
	return nil, nil
}

func (c *countingCatalog) lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providerCalls + c.eventCodeCalls
}

type memoryControlPlane struct {
	mu               sync.Mutex
	packages         map[string]PackageSpec
	actions          map[string]SequenceSpec
	packageCreates   []PackageSpec
	sequenceCreates  []SequenceSpec
	packageChecks    int
	actionChecks     int
	conflictOnCreate bool
}

func newMemoryControlPlane() *memoryControlPlane {
	return &memoryControlPlane{
		packages: map[string]PackageSpec{},
		actions:  map[string]SequenceSpec{},
	}
}

func (p *memoryControlPlane) PackageExists(_ context.Context, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packageChecks++
	_, ok := p.packages[name]
	return ok, nil
}

func (p *memoryControlPlane) CreateOrUpdatePackage(_ context.Context, spec PackageSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packageCreates = append(p.packageCreates, spec)
	if p.conflictOnCreate {
		return ProvisioningConflictError(nil, spec.Name)
	}
	p.packages[spec.Name] = spec
	return nil
}

func (p *memoryControlPlane) ActionExists(_ context.Context, name string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actionChecks++
	_, ok := p.actions[name]
	return ok, nil
}

func (p *memoryControlPlane) CreateSequence(_ context.Context, spec SequenceSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sequenceCreates = append(p.sequenceCreates, spec)
	if p.conflictOnCreate {
		return ProvisioningConflictError(nil, spec.Name)
	}
	p.actions[spec.Name] = spec
	return nil
}

type recordingChooser struct {
	answer string
	calls  int
	seen   []ProviderChoice
}

func (c *recordingChooser) ChooseProvider(_ context.Context, _ string, choices []ProviderChoice) (string, error) {
	c.calls++
	c.seen = append([]ProviderChoice(nil), choices...)
	return c.answer, nil
}

type recordingProgress struct {
	starts int
	stops  int
}

func (p *recordingProgress) Start(string) { p.starts++ }
func (p *recordingProgress) Stop()        { p.stops++ }

type memoryLedger struct {
	mu      sync.Mutex
	entries []LedgerEntry
}

func (l *memoryLedger) Load(context.Context, Target) ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LedgerEntry(nil), l.entries...), nil
}

func (l *memoryLedger) Append(_ context.Context, _ Target, entry LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memoryLedger) Remove(_ context.Context, _ Target, registrationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if entry.RegistrationID != registrationID {
			kept = append(kept, entry)
		}
	}
	l.entries = kept
	return nil
}

type staticProjectLoader struct {
	project ProjectContext
	err     error
}

func (l staticProjectLoader) LoadProject(context.Context) (ProjectContext, error) {
	return l.project, l.err
}

type staticIdentity struct {
	credentials WorkspaceCredentials
}

func (i staticIdentity) Credentials(context.Context, ProjectContext) (WorkspaceCredentials, error) {
	return i.credentials, nil
}

type recordingCapability struct {
	codes []string
}

func (c *recordingCapability) EnsureCapability(_ context.Context, _ ProjectContext, code string) error {
	c.codes = append(c.codes, code)
	return nil
}

type staticManifest struct {
	manifest Manifest
}

func (m staticManifest) LoadManifest(context.Context) (Manifest, error) {
	return m.manifest, nil
}

// manualInterrupt captures the cleanup so tests can fire it on demand.
type manualInterrupt struct {
	cleanup  func(context.Context)
	detached bool
}

func (m *manualInterrupt) OnInterrupt(cleanup func(context.Context)) func() {
	m.cleanup = cleanup
	return func() { m.detached = true }
}

func (m *manualInterrupt) fire() {
	if m.cleanup != nil && !m.detached {
		m.cleanup(context.Background())
	}
}

func testTarget() Target {
	return Target{OrgID: "org_1", IMSOrgID: "IMS@AdobeOrg", IntegrationID: "int_1", ClientID: "client_1"}
}

func testDeployment() DeploymentTarget {
	return DeploymentTarget{Namespace: "ns1", APIHost: "https://runtime.example", APIVersion: "v1"}
}

type engineFixture struct {
	registry *memoryRegistry
	catalog  *countingCatalog
	plane    *memoryControlPlane
	chooser  *recordingChooser
	logger   *captureLogger
	engine   *Engine
}

func newEngineFixture(registry *memoryRegistry, catalog *countingCatalog, preferences ...string) (*engineFixture, error) {
	fixture := &engineFixture{
		registry: registry,
		catalog:  catalog,
		plane:    newMemoryControlPlane(),
		chooser:  &recordingChooser{},
		logger:   newCaptureLogger(),
	}
	directory, err := NewProviderDirectory(catalog, testTarget().OrgID)
	if err != nil {
		return nil, err
	}
	router, err := NewRouteProvisioner(fixture.plane, DefaultConfig().Routing, testTarget(), testDeployment())
	if err != nil {
		return nil, err
	}
	counter := 0
	engine, err := NewEngine(EngineDependencies{
		Actual:    NewRemoteStateSource(registry),
		Directory: directory,
		Selector:  NewProviderSelector(preferences, fixture.chooser),
		Router:    router,
		Target:    testTarget(),
		NameGenerator: func() string {
			counter++
			return fmt.Sprintf("name-%d", counter)
		},
		Logger: fixture.logger,
	})
	if err != nil {
		return nil, err
	}
	fixture.engine = engine
	return fixture, nil
}

func packagesOf(decls ...PackageDecl) []PackageDecl {
	return decls
}

func action(name string, events ...string) CallableDecl {
	return CallableDecl{Name: name, ListensFor: events}
}
