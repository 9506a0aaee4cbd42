package core

import (
	"context"
	"testing"
)

func TestRouteProvisioner_CreatesTopologyOnce(t *testing.T) {
	plane := newMemoryControlPlane()
	router, err := NewRouteProvisioner(plane, DefaultConfig().Routing, testTarget(), testDeployment())
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ctx := context.Background()
	provider := Provider{ID: "p1", InstanceID: "inst1"}

	url, err := router.EnsureRoute(ctx, DesiredSubscription{EventType: "evt", PackageName: "pkg", CallableName: "act"}, provider)
	if err != nil {
		t.Fatalf("ensure route: %v", err)
	}
	if url != "https://runtime.example/api/v1/web/ns1/acp/sync_event_handler?sync=true&id=pkgact" {
		t.Fatalf("unexpected webhook url %q", url)
	}
	if _, err := router.EnsureRoute(ctx, DesiredSubscription{EventType: "evt", PackageName: "pkg", CallableName: "other"}, provider); err != nil {
		t.Fatalf("ensure second route: %v", err)
	}

	if len(plane.packageCreates) != 2 {
		t.Fatalf("expected bound and dispatch packages created once, got %d", len(plane.packageCreates))
	}
	if plane.packageChecks != 2 {
		t.Fatalf("expected shared package checks memoized per run, got %d", plane.packageChecks)
	}
	bound := plane.packageCreates[0]
	if bound.Name != "bound_package" || bound.Binding == nil {
		t.Fatalf("unexpected bound package %+v", bound)
	}
	if bound.Binding.Namespace != "adobe" || bound.Binding.Name != "acp-event-handler-3.0.0" {
		t.Fatalf("unexpected binding %+v", *bound.Binding)
	}
	if len(bound.Parameters) != 1 || bound.Parameters[0].Key != "recipient_client_id" || bound.Parameters[0].Value != "client_1" {
		t.Fatalf("unexpected bound parameters %+v", bound.Parameters)
	}
	if plane.packageCreates[1].Name != "acp" || plane.packageCreates[1].Binding != nil {
		t.Fatalf("unexpected dispatch package %+v", plane.packageCreates[1])
	}

	if len(plane.sequenceCreates) != 3 {
		t.Fatalf("expected sync handler plus two custom sequences, got %d", len(plane.sequenceCreates))
	}
	sync := plane.sequenceCreates[0]
	if sync.Name != "/ns1/acp/sync_event_handler" || !sync.Web {
		t.Fatalf("unexpected sync handler %+v", sync)
	}
	if len(sync.Components) != 1 || sync.Components[0] != "/ns1/bound_package/handler" {
		t.Fatalf("unexpected sync handler components %v", sync.Components)
	}
	if sync.Annotations["web-export"] != true || sync.Annotations["final"] != "false" {
		t.Fatalf("unexpected sync handler annotations %v", sync.Annotations)
	}
	custom := plane.sequenceCreates[1]
	if custom.Name != "3rd_party_custom_events_IMS@AdobeOrg_inst1_evt_pkgact" {
		t.Fatalf("unexpected custom sequence name %q", custom.Name)
	}
	if custom.Components[0] != "/ns1/bound_package/validate_action" || custom.Components[1] != "/ns1/pkg/act" {
		t.Fatalf("unexpected custom components %v", custom.Components)
	}
	if custom.Web {
		t.Fatalf("custom sequence must not be web exposed")
	}
}

func TestRouteProvisioner_SkipsExistingEntities(t *testing.T) {
	plane := newMemoryControlPlane()
	plane.packages["bound_package"] = PackageSpec{Name: "bound_package"}
	plane.packages["acp"] = PackageSpec{Name: "acp"}
	plane.actions["/ns1/acp/sync_event_handler"] = SequenceSpec{}
	plane.actions["3rd_party_custom_events_IMS@AdobeOrg_inst1_evt_pkgact"] = SequenceSpec{}

	router, err := NewRouteProvisioner(plane, DefaultConfig().Routing, testTarget(), testDeployment())
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	if _, err := router.EnsureRoute(context.Background(), DesiredSubscription{EventType: "evt", PackageName: "pkg", CallableName: "act"}, Provider{InstanceID: "inst1"}); err != nil {
		t.Fatalf("ensure route: %v", err)
	}
	if len(plane.packageCreates) != 0 || len(plane.sequenceCreates) != 0 {
		t.Fatalf("expected no create calls for existing entities, got %d packages %d sequences",
			len(plane.packageCreates), len(plane.sequenceCreates))
	}
}

func TestRouteProvisioner_ConflictTreatedAsExisting(t *testing.T) {
	plane := newMemoryControlPlane()
	plane.conflictOnCreate = true
	router, err := NewRouteProvisioner(plane, DefaultConfig().Routing, testTarget(), testDeployment())
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	if _, err := router.EnsureRoute(context.Background(), DesiredSubscription{EventType: "evt", PackageName: "pkg", CallableName: "act"}, Provider{InstanceID: "inst1"}); err != nil {
		t.Fatalf("expected conflicts tolerated, got %v", err)
	}
}

func TestRouteProvisioner_RequiresDeploymentTarget(t *testing.T) {
	if _, err := NewRouteProvisioner(newMemoryControlPlane(), DefaultConfig().Routing, testTarget(), DeploymentTarget{}); err == nil {
		t.Fatalf("expected missing namespace to fail")
	}
}

func TestRouteKey_SequenceName(t *testing.T) {
	key := RouteKey{IMSOrgID: "org", ProviderInstanceID: "inst", EventType: "evt", PackageName: "pkg", CallableName: "act"}
	if got := key.SequenceName("prefix"); got != "prefix_org_inst_evt_pkgact" {
		t.Fatalf("unexpected sequence name %q", got)
	}
	if key.RoutingID() != "pkgact" {
		t.Fatalf("unexpected routing id %q", key.RoutingID())
	}
}
