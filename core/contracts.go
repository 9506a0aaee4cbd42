package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// RegistryClient is the thin contract over the remote registration API.
// Implementations never retry.
type RegistryClient interface {
	ListRegistrations(ctx context.Context, orgID, integrationID string) ([]Registration, error)
	CreateRegistration(ctx context.Context, orgID, integrationID string, spec RegistrationSpec) (Registration, error)
	DeleteRegistration(ctx context.Context, orgID, integrationID, registrationID string) error
}

type ProviderCatalog interface {
	ListProviders(ctx context.Context, orgID string) ([]ProviderSummary, error)
	ListEventCodes(ctx context.Context, providerID string) ([]string, error)
}

type ProviderChoice struct {
	ID         string
	Label      string
	InstanceID string
}

// ProviderChooser asks a human to pick one provider. Implementations may
// block indefinitely.
type ProviderChooser interface {
	ChooseProvider(ctx context.Context, eventType string, choices []ProviderChoice) (string, error)
}

type ProgressReporter interface {
	Start(message string)
	Stop()
}

type PackageBinding struct {
	Namespace string
	Name      string
}

type KeyValue struct {
	Key   string
	Value any
}

type PackageSpec struct {
	Name       string
	Binding    *PackageBinding
	Parameters []KeyValue
}

type SequenceSpec struct {
	Name        string
	Components  []string
	Annotations map[string]any
	Web         bool
}

// ControlPlane is the subset of serverless CRUD the routing provisioner
// needs.
type ControlPlane interface {
	PackageExists(ctx context.Context, name string) (bool, error)
	CreateOrUpdatePackage(ctx context.Context, spec PackageSpec) error
	ActionExists(ctx context.Context, name string) (bool, error)
	CreateSequence(ctx context.Context, spec SequenceSpec) error
}

// ActualStateSource abstracts where the engine reads applied registrations
// from. Create and Delete always reach the remote registry.
type ActualStateSource interface {
	List(ctx context.Context, target Target) ([]Registration, error)
	Create(ctx context.Context, target Target, spec RegistrationSpec) (Registration, error)
	Delete(ctx context.Context, target Target, registration Registration) error
}

type LedgerEntry struct {
	EventType      string
	RegistrationID string
	RuntimeAction  string
	ProviderID     string
}

type LedgerStore interface {
	Load(ctx context.Context, target Target) ([]LedgerEntry, error)
	Append(ctx context.Context, target Target, entry LedgerEntry) error
	Remove(ctx context.Context, target Target, registrationID string) error
}

// ConfigStore is a dotted-key configuration store. Set with persist=true
// writes through to durable storage.
type ConfigStore interface {
	Get(key string) (any, bool)
	Set(key string, value any, persist bool) error
}

type ManifestLoader interface {
	LoadManifest(ctx context.Context) (Manifest, error)
}

type ProjectLoader interface {
	LoadProject(ctx context.Context) (ProjectContext, error)
}

type IdentityProvider interface {
	Credentials(ctx context.Context, project ProjectContext) (WorkspaceCredentials, error)
}

type CapabilityProvisioner interface {
	EnsureCapability(ctx context.Context, project ProjectContext, code string) error
}

// RunEnvironment is everything resolved before a reconciliation run starts.
type RunEnvironment struct {
	Project     ProjectContext
	Credentials WorkspaceCredentials
	Manifest    Manifest
}

func (e RunEnvironment) Target() Target {
	return Target{
		OrgID:         e.Project.OrgID,
		IMSOrgID:      e.Project.IMSOrgID,
		IntegrationID: e.Credentials.IntegrationID,
		ClientID:      e.Credentials.ClientID,
	}
}

type RunClients struct {
	Registry     RegistryClient
	Catalog      ProviderCatalog
	ControlPlane ControlPlane
}

// ClientFactory builds the remote clients for one run once credentials and
// the deployment target are known.
type ClientFactory interface {
	Clients(ctx context.Context, env RunEnvironment) (RunClients, error)
}

type ClientFactoryFunc func(ctx context.Context, env RunEnvironment) (RunClients, error)

func (f ClientFactoryFunc) Clients(ctx context.Context, env RunEnvironment) (RunClients, error) {
	return f(ctx, env)
}

// InterruptSource runs cleanup once when the interactive session terminates.
// The returned stop function detaches the handler without running it.
type InterruptSource interface {
	OnInterrupt(cleanup func(ctx context.Context)) (stop func())
}
