package core

import (
	"fmt"
	"strings"
)

type Operation string

const (
	OperationDeploy   Operation = "deploy"
	OperationUndeploy Operation = "undeploy"
	OperationRun      Operation = "run"
)

// ParseOperation accepts bare operation names and the host CLI command ids
// ("app:deploy"). Unknown identifiers report false.
func ParseOperation(raw string) (Operation, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimPrefix(value, "app:")
	switch Operation(value) {
	case OperationDeploy, OperationUndeploy, OperationRun:
		return Operation(value), true
	default:
		return "", false
	}
}

const DeliveryTypeWebhook = "WEBHOOK"

type DesiredSubscription struct {
	EventType    string
	PackageName  string
	CallableName string
}

// RuntimeAction is the package/callable reference stored on registrations
// created for private callables.
func (d DesiredSubscription) RuntimeAction() string {
	return RuntimeActionName(d.PackageName, d.CallableName)
}

func RuntimeActionName(packageName, callableName string) string {
	return strings.TrimSpace(packageName) + "/" + strings.TrimSpace(callableName)
}

type EventOfInterest struct {
	ProviderID string
	EventCode  string
}

type Registration struct {
	ID            string
	ClientID      string
	Name          string
	Description   string
	WebhookURL    string
	DeliveryType  string
	Events        []EventOfInterest
	RuntimeAction string
}

func (r Registration) HasEventCode(code string) bool {
	for _, event := range r.Events {
		if event.EventCode == code {
			return true
		}
	}
	return false
}

// Matches applies the canonical match key: runtime action plus event code
// for private-callable registrations, event code alone for legacy batch
// webhook registrations that carry no runtime action.
func (r Registration) Matches(desired DesiredSubscription) bool {
	if !r.HasEventCode(desired.EventType) {
		return false
	}
	if strings.TrimSpace(r.RuntimeAction) == "" {
		return true
	}
	return r.RuntimeAction == desired.RuntimeAction()
}

type RegistrationSpec struct {
	Name          string
	Description   string
	ClientID      string
	DeliveryType  string
	WebhookURL    string
	RuntimeAction string
	Events        []EventOfInterest
}

type Provider struct {
	ID         string
	Label      string
	InstanceID string
	EventCodes []string
}

func (p Provider) Supports(eventCode string) bool {
	for _, code := range p.EventCodes {
		if code == eventCode {
			return true
		}
	}
	return false
}

func (p Provider) clone() Provider {
	p.EventCodes = append([]string(nil), p.EventCodes...)
	return p
}

type ProviderSummary struct {
	ID         string
	Label      string
	InstanceID string
}

type CallableDecl struct {
	Name       string
	ListensFor []string
}

type PackageDecl struct {
	Name      string
	Actions   []CallableDecl
	Sequences []CallableDecl
}

type DeploymentTarget struct {
	Namespace  string
	APIHost    string
	APIVersion string
}

func (t DeploymentTarget) Validate() error {
	if strings.TrimSpace(t.Namespace) == "" {
		return fmt.Errorf("core: runtime namespace is required")
	}
	if strings.TrimSpace(t.APIHost) == "" {
		return fmt.Errorf("core: runtime api host is required")
	}
	return nil
}

type Manifest struct {
	Packages []PackageDecl
	Target   DeploymentTarget
}

// Target identifies the registry owner for one reconciliation run.
type Target struct {
	OrgID         string
	IMSOrgID      string
	IntegrationID string
	ClientID      string
}

func (t Target) Validate() error {
	if strings.TrimSpace(t.OrgID) == "" {
		return fmt.Errorf("core: org id is required")
	}
	if strings.TrimSpace(t.IntegrationID) == "" {
		return fmt.Errorf("core: service integration id is required")
	}
	return nil
}

// RouteKey is the composite identity of a per-callable handler sequence.
// The wire name is only rendered at the control plane boundary.
type RouteKey struct {
	IMSOrgID           string
	ProviderInstanceID string
	EventType          string
	PackageName        string
	CallableName       string
}

func (k RouteKey) SequenceName(prefix string) string {
	return strings.Join([]string{
		prefix,
		k.IMSOrgID,
		k.ProviderInstanceID,
		k.EventType,
		k.RoutingID(),
	}, "_")
}

// RoutingID is the dispatch identifier the generic sync handler receives.
func (k RouteKey) RoutingID() string {
	return k.PackageName + k.CallableName
}

type ProjectContext struct {
	ProjectID     string
	ProjectName   string
	WorkspaceID   string
	WorkspaceName string
	OrgID         string
	IMSOrgID      string
}

type WorkspaceCredentials struct {
	IntegrationID string
	ClientID      string
	AccessToken   string
}

type ReconcileResult struct {
	Created       []Registration
	Deleted       []string
	FailedDeletes []string
	Skipped       int
	// Registrations is the in-memory actual state after the run: everything
	// found or created, minus what was deleted.
	Registrations []Registration
}
