package core

import (
	"context"
	"testing"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

func TestGoOptionsResolver_RuntimeOverridesConfig(t *testing.T) {
	defaults := DefaultConfig()
	loaded := DefaultConfig()
	loaded.ServiceName = "from-config"
	loaded.Registry.BaseURL = "https://registry.config"
	loaded.PreferredProviders = []string{"cfg"}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, Config{
		ServiceName:        "runtime",
		PreferredProviders: []string{"rt1", "rt2"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "runtime" {
		t.Fatalf("expected runtime service name, got %q", resolved.ServiceName)
	}
	if resolved.Registry.BaseURL != "https://registry.config" {
		t.Fatalf("expected config base url preserved, got %q", resolved.Registry.BaseURL)
	}
	if len(resolved.PreferredProviders) != 2 || resolved.PreferredProviders[0] != "rt1" {
		t.Fatalf("expected runtime preferences, got %v", resolved.PreferredProviders)
	}
	if resolved.Routing.SyncHandler != "sync_event_handler" {
		t.Fatalf("expected default routing preserved, got %q", resolved.Routing.SyncHandler)
	}
}

func TestGoOptionsResolver_RejectsUnknownActualState(t *testing.T) {
	_, err := GoOptionsResolver{}.Resolve(DefaultConfig(), Config{}, Config{ActualState: "mirror"})
	if err == nil {
		t.Fatalf("expected invalid actual_state to fail validation")
	}
}

func TestCfgxConfigProvider_ParsesNestedKeys(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"actual_state":        "ledger",
		"preferred_providers": "a,,b",
		"routing": map[string]any{
			"dispatch_package": "dispatch",
		},
		"ledger": map[string]any{
			"driver": "postgres",
			"dsn":    "postgres://localhost/events",
		},
	}})

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ActualState != ActualStateLedger || cfg.Ledger.Driver != "postgres" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Routing.DispatchPackage != "dispatch" || cfg.Routing.BoundPackage != "bound_package" {
		t.Fatalf("expected nested override merged with defaults, got %+v", cfg.Routing)
	}
	if len(cfg.PreferredProviders) != 2 || cfg.PreferredProviders[1] != "b" {
		t.Fatalf("expected comma list parsed, got %v", cfg.PreferredProviders)
	}
}

func TestNewService_WithConfigProvider(t *testing.T) {
	loaded := DefaultConfig()
	loaded.RegistrationNamePrefix = "custom prefix"
	svc, err := NewService(Config{}, WithConfigProvider(&fixedConfigProvider{cfg: loaded}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.Config().RegistrationNamePrefix != "custom prefix" {
		t.Fatalf("expected loaded prefix, got %q", svc.Config().RegistrationNamePrefix)
	}
}

func TestParsePreferredProviders(t *testing.T) {
	got := ParsePreferredProviders(" p1 ,p2,, p3")
	if len(got) != 3 || got[0] != "p1" || got[2] != "p3" {
		t.Fatalf("unexpected preferences %v", got)
	}
	if len(ParsePreferredProviders("")) != 0 {
		t.Fatalf("expected empty list")
	}
}
