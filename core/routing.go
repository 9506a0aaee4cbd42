package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// RouteProvisioner ensures the routing topology that lets the public sync
// handler reach private callables. Shared entities are checked at most once
// per run; every creation is preceded by an existence check.
type RouteProvisioner struct {
	plane     ControlPlane
	routing   RoutingConfig
	target    Target
	runtime   DeploymentTarget
	telemetry telemetry

	boundReady    bool
	dispatchReady bool
	syncReady     bool
	customReady   map[RouteKey]struct{}
}

func NewRouteProvisioner(plane ControlPlane, routing RoutingConfig, target Target, runtime DeploymentTarget) (*RouteProvisioner, error) {
	if plane == nil {
		return nil, fmt.Errorf("core: control plane is required")
	}
	if err := routing.Validate(); err != nil {
		return nil, err
	}
	if err := runtime.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(runtime.APIVersion) == "" {
		runtime.APIVersion = "v1"
	}
	return &RouteProvisioner{
		plane:       plane,
		routing:     routing,
		target:      target,
		runtime:     runtime,
		customReady: map[RouteKey]struct{}{},
	}, nil
}

func (p *RouteProvisioner) withTelemetry(t telemetry) *RouteProvisioner {
	p.telemetry = t
	return p
}

// EnsureRoute provisions everything needed to deliver eventType from
// provider to the desired callable and returns the webhook URL.
func (p *RouteProvisioner) EnsureRoute(ctx context.Context, desired DesiredSubscription, provider Provider) (string, error) {
	if p == nil {
		return "", fmt.Errorf("core: route provisioner is not configured")
	}
	if err := p.ensureBoundPackage(ctx); err != nil {
		return "", err
	}
	if err := p.ensureDispatchPackage(ctx); err != nil {
		return "", err
	}
	if err := p.ensureSyncHandler(ctx); err != nil {
		return "", err
	}
	key := RouteKey{
		IMSOrgID:           p.target.IMSOrgID,
		ProviderInstanceID: provider.InstanceID,
		EventType:          desired.EventType,
		PackageName:        desired.PackageName,
		CallableName:       desired.CallableName,
	}
	if err := p.ensureCustomSequence(ctx, key); err != nil {
		return "", err
	}
	return p.WebhookURL(key), nil
}

// WebhookURL renders the sync handler web endpoint with the routing id the
// handler dispatches on.
func (p *RouteProvisioner) WebhookURL(key RouteKey) string {
	apiHost := strings.TrimRight(p.runtime.APIHost, "/")
	return fmt.Sprintf("%s/api/%s/web/%s/%s/%s?sync=true&id=%s",
		apiHost,
		p.runtime.APIVersion,
		p.runtime.Namespace,
		p.routing.DispatchPackage,
		p.routing.SyncHandler,
		url.QueryEscape(key.RoutingID()),
	)
}

func (p *RouteProvisioner) ensureBoundPackage(ctx context.Context) error {
	if p.boundReady {
		return nil
	}
	binding := parseBinding(p.routing.HandlerTemplate)
	spec := PackageSpec{
		Name:    p.routing.BoundPackage,
		Binding: &binding,
		Parameters: []KeyValue{
			{Key: p.routing.ClientIDParam, Value: p.target.ClientID},
		},
	}
	if err := p.ensurePackage(ctx, spec); err != nil {
		return err
	}
	p.boundReady = true
	return nil
}

func (p *RouteProvisioner) ensureDispatchPackage(ctx context.Context) error {
	if p.dispatchReady {
		return nil
	}
	if err := p.ensurePackage(ctx, PackageSpec{Name: p.routing.DispatchPackage}); err != nil {
		return err
	}
	p.dispatchReady = true
	return nil
}

func (p *RouteProvisioner) ensureSyncHandler(ctx context.Context) error {
	if p.syncReady {
		return nil
	}
	spec := SequenceSpec{
		Name:       p.qualified(p.routing.DispatchPackage, p.routing.SyncHandler),
		Components: []string{p.qualified(p.routing.BoundPackage, p.routing.HandlerAction)},
		Annotations: map[string]any{
			"final":                  "false",
			"event_handler_sequence": p.routing.SyncHandler,
			"web-export":             true,
			"raw-http":               true,
		},
		Web: true,
	}
	if err := p.ensureSequence(ctx, spec); err != nil {
		return err
	}
	p.syncReady = true
	return nil
}

func (p *RouteProvisioner) ensureCustomSequence(ctx context.Context, key RouteKey) error {
	if _, ok := p.customReady[key]; ok {
		return nil
	}
	spec := SequenceSpec{
		Name: key.SequenceName(p.routing.CustomSequencePrefix),
		Components: []string{
			p.qualified(p.routing.BoundPackage, p.routing.ValidateAction),
			p.qualified(key.PackageName, key.CallableName),
		},
		Annotations: map[string]any{
			"user_sequence": "true",
			"raw-http":      "true",
		},
	}
	if err := p.ensureSequence(ctx, spec); err != nil {
		return err
	}
	p.customReady[key] = struct{}{}
	return nil
}

func (p *RouteProvisioner) ensurePackage(ctx context.Context, spec PackageSpec) error {
	exists, err := p.plane.PackageExists(ctx, spec.Name)
	if err != nil {
		return err
	}
	if exists {
		p.telemetry.logDebug(ctx, "package already exists", map[string]any{"package": spec.Name})
		return nil
	}
	if err := p.plane.CreateOrUpdatePackage(ctx, spec); err != nil {
		if IsProvisioningConflict(err) {
			p.telemetry.logDebug(ctx, "package created concurrently", map[string]any{"package": spec.Name})
			return nil
		}
		return err
	}
	p.telemetry.logDebug(ctx, "package created", map[string]any{"package": spec.Name})
	return nil
}

func (p *RouteProvisioner) ensureSequence(ctx context.Context, spec SequenceSpec) error {
	exists, err := p.plane.ActionExists(ctx, spec.Name)
	if err != nil {
		return err
	}
	if exists {
		p.telemetry.logDebug(ctx, "sequence already exists", map[string]any{"sequence": spec.Name})
		return nil
	}
	if err := p.plane.CreateSequence(ctx, spec); err != nil {
		if IsProvisioningConflict(err) {
			p.telemetry.logDebug(ctx, "sequence created concurrently", map[string]any{"sequence": spec.Name})
			return nil
		}
		return err
	}
	p.telemetry.logDebug(ctx, "sequence created", map[string]any{"sequence": spec.Name})
	return nil
}

func (p *RouteProvisioner) qualified(packageName, entity string) string {
	return "/" + p.runtime.Namespace + "/" + packageName + "/" + entity
}

// parseBinding splits "/namespace/path/package" into namespace and package
// name; the last segment is the package.
func parseBinding(fullyQualified string) PackageBinding {
	clean := strings.TrimPrefix(strings.TrimSpace(fullyQualified), "/")
	index := strings.LastIndex(clean, "/")
	if index < 0 {
		return PackageBinding{Name: clean}
	}
	return PackageBinding{Namespace: clean[:index], Name: clean[index+1:]}
}
