package core

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

type EngineDependencies struct {
	Actual          ActualStateSource
	Directory       *ProviderDirectory
	Selector        *ProviderSelector
	Router          *RouteProvisioner
	Target          Target
	NamePrefix      string
	NameGenerator   func() string
	Logger          Logger
	MetricsRecorder MetricsRecorder
}

// Engine applies one reconciliation pass for a single target. An engine
// and the directory it holds belong to exactly one run.
type Engine struct {
	actual        ActualStateSource
	directory     *ProviderDirectory
	selector      *ProviderSelector
	router        *RouteProvisioner
	target        Target
	namePrefix    string
	nameGenerator func() string
	telemetry     telemetry
}

func NewEngine(deps EngineDependencies) (*Engine, error) {
	if deps.Actual == nil {
		return nil, fmt.Errorf("core: actual state source is required")
	}
	if err := deps.Target.Validate(); err != nil {
		return nil, err
	}
	if deps.NameGenerator == nil {
		deps.NameGenerator = uuid.NewString
	}
	if strings.TrimSpace(deps.NamePrefix) == "" {
		deps.NamePrefix = DefaultConfig().RegistrationNamePrefix
	}
	if deps.MetricsRecorder == nil {
		deps.MetricsRecorder = NopMetricsRecorder{}
	}
	t := telemetry{logger: glog.Ensure(deps.Logger), metricsRecorder: deps.MetricsRecorder}
	if deps.Router != nil {
		deps.Router.withTelemetry(t)
	}
	return &Engine{
		actual:        deps.Actual,
		directory:     deps.Directory,
		selector:      deps.Selector,
		router:        deps.Router,
		target:        deps.Target,
		namePrefix:    strings.TrimSpace(deps.NamePrefix),
		nameGenerator: deps.NameGenerator,
		telemetry:     t,
	}, nil
}

// Reconcile fetches actual state, creates a registration for every desired
// subscription nothing matches yet, then deletes registrations no desired
// subscription matches. Creation failures abort the run; deletion failures
// are logged and recorded in the result.
func (e *Engine) Reconcile(ctx context.Context, desired iter.Seq[DesiredSubscription]) (result ReconcileResult, err error) {
	startedAt := time.Now()
	defer func() {
		e.telemetry.observeOperation(ctx, startedAt, "reconcile", err, e.fields(map[string]any{
			"created":        len(result.Created),
			"deleted":        len(result.Deleted),
			"failed_deletes": len(result.FailedDeletes),
			"skipped":        result.Skipped,
		}))
	}()

	actual, err := e.actual.List(ctx, e.target)
	if err != nil {
		return ReconcileResult{}, err
	}
	wanted := CollectDesired(desired)

	for _, subscription := range wanted {
		if anyMatches(actual, subscription) {
			result.Skipped++
			e.telemetry.logDebug(ctx, "already subscribed", e.fields(map[string]any{
				"event_type":     subscription.EventType,
				"runtime_action": subscription.RuntimeAction(),
			}))
			continue
		}
		registration, createErr := e.subscribe(ctx, subscription)
		if createErr != nil {
			result.Registrations = cloneRegistrations(actual)
			return result, createErr
		}
		actual = append(actual, registration)
		result.Created = append(result.Created, registration)
	}

	remaining := make([]Registration, 0, len(actual))
	for _, registration := range actual {
		if matchesAny(registration, wanted) {
			remaining = append(remaining, registration)
			continue
		}
		if e.delete(ctx, registration, &result) {
			continue
		}
		remaining = append(remaining, registration)
	}
	result.Registrations = remaining
	return result, nil
}

// Undeploy deletes every registration the actual state source reports,
// ignoring desired state.
func (e *Engine) Undeploy(ctx context.Context) (result ReconcileResult, err error) {
	startedAt := time.Now()
	defer func() {
		e.telemetry.observeOperation(ctx, startedAt, "undeploy", err, e.fields(map[string]any{
			"deleted":        len(result.Deleted),
			"failed_deletes": len(result.FailedDeletes),
		}))
	}()

	actual, err := e.actual.List(ctx, e.target)
	if err != nil {
		return ReconcileResult{}, err
	}
	return e.Cleanup(ctx, actual), nil
}

// Cleanup attempts to delete each registration once. Failures are
// independent of each other.
func (e *Engine) Cleanup(ctx context.Context, registrations []Registration) ReconcileResult {
	result := ReconcileResult{}
	for _, registration := range registrations {
		if !e.delete(ctx, registration, &result) {
			result.Registrations = append(result.Registrations, registration)
		}
	}
	return result
}

func (e *Engine) subscribe(ctx context.Context, subscription DesiredSubscription) (Registration, error) {
	if e.directory == nil || e.selector == nil {
		return Registration{}, fmt.Errorf("core: engine is not configured for provider resolution")
	}
	if e.router == nil {
		return Registration{}, ConfigurationMissingError("runtime namespace and api host are required to provision routing", map[string]any{
			"event_type": subscription.EventType,
		})
	}
	candidates, err := e.directory.FindProvidersForEvent(ctx, subscription.EventType)
	if err != nil {
		return Registration{}, err
	}
	provider, err := e.selector.SelectProvider(ctx, candidates, subscription.EventType)
	if err != nil {
		return Registration{}, err
	}
	webhookURL, err := e.router.EnsureRoute(ctx, subscription, provider)
	if err != nil {
		return Registration{}, err
	}

	name := e.namePrefix + " " + e.nameGenerator()
	spec := RegistrationSpec{
		Name:          name,
		Description:   name,
		ClientID:      e.target.ClientID,
		DeliveryType:  DeliveryTypeWebhook,
		WebhookURL:    webhookURL,
		RuntimeAction: subscription.RuntimeAction(),
		Events: []EventOfInterest{{
			ProviderID: provider.ID,
			EventCode:  subscription.EventType,
		}},
	}
	registration, err := e.actual.Create(ctx, e.target, spec)
	if err != nil {
		return Registration{}, err
	}
	if strings.TrimSpace(registration.RuntimeAction) == "" {
		registration.RuntimeAction = spec.RuntimeAction
	}
	if len(registration.Events) == 0 {
		registration.Events = append([]EventOfInterest(nil), spec.Events...)
	}
	e.telemetry.logInfo(ctx, "registration created", e.fields(map[string]any{
		"registration_id": registration.ID,
		"event_type":      subscription.EventType,
		"provider_id":     provider.ID,
		"runtime_action":  spec.RuntimeAction,
	}))
	return registration, nil
}

func (e *Engine) delete(ctx context.Context, registration Registration, result *ReconcileResult) bool {
	fields := e.fields(map[string]any{"registration_id": registration.ID})
	e.telemetry.logDebug(ctx, "deleting registration", fields)
	if err := e.actual.Delete(ctx, e.target, registration); err != nil {
		fields["error"] = err.Error()
		e.telemetry.logDebug(ctx, "registration delete failed", fields)
		result.FailedDeletes = append(result.FailedDeletes, registration.ID)
		return false
	}
	e.telemetry.logDebug(ctx, "registration deleted", fields)
	result.Deleted = append(result.Deleted, registration.ID)
	return true
}

func (e *Engine) fields(extra map[string]any) map[string]any {
	fields := cloneFields(extra)
	fields["org_id"] = e.target.OrgID
	fields["integration_id"] = e.target.IntegrationID
	return fields
}

func anyMatches(registrations []Registration, subscription DesiredSubscription) bool {
	for _, registration := range registrations {
		if registration.Matches(subscription) {
			return true
		}
	}
	return false
}

func matchesAny(registration Registration, wanted []DesiredSubscription) bool {
	for _, subscription := range wanted {
		if registration.Matches(subscription) {
			return true
		}
	}
	return false
}

func cloneRegistrations(in []Registration) []Registration {
	return append([]Registration(nil), in...)
}
