package eventsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-event-registrations/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{
		BaseURL:     server.URL,
		IMSOrgID:    "ims@AdobeOrg",
		APIKey:      "client-1",
		AccessToken: "token-1",
	}, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}, nil); !core.IsConfigurationMissing(err) {
		t.Fatalf("expected configuration missing for empty token, got %v", err)
	}
	if _, err := NewClient(Config{AccessToken: "t"}, nil); !core.IsConfigurationMissing(err) {
		t.Fatalf("expected configuration missing for empty api key, got %v", err)
	}
}

func TestClient_ListRegistrationsHALAndHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/organizations/org-1/integrations/int-1/registrations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected authorization %q", got)
		}
		if got := r.Header.Get("x-api-key"); got != "client-1" {
			t.Errorf("unexpected api key %q", got)
		}
		if got := r.Header.Get("x-gw-ims-org-id"); got != "ims@AdobeOrg" {
			t.Errorf("unexpected ims org %q", got)
		}
		_, _ = w.Write([]byte(`{"_embedded":{"registrations":[
			{"registration_id":"reg-1","name":"n","runtime_action":"pkg/act","webhook_url":"https://hook",
			 "events_of_interest":[{"provider_id":"p1","event_code":"evt.a"}]}
		]}}`))
	})

	regs, err := client.ListRegistrations(context.Background(), "org-1", "int-1")
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("expected one registration, got %d", len(regs))
	}
	reg := regs[0]
	if reg.ID != "reg-1" || reg.RuntimeAction != "pkg/act" || !reg.HasEventCode("evt.a") {
		t.Fatalf("unexpected registration %+v", reg)
	}
}

func TestClient_ListRegistrationsLegacyArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":42,"events_of_interest":[{"provider_id":"p1","event_code":"evt.b"}]}]`))
	})

	regs, err := client.ListRegistrations(context.Background(), "org-1", "int-1")
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	if len(regs) != 1 || regs[0].ID != "42" {
		t.Fatalf("expected numeric id to be carried as string, got %+v", regs)
	}
	if regs[0].RuntimeAction != "" {
		t.Fatalf("legacy registration should have no runtime action")
	}
}

func TestClient_CreateRegistrationBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["delivery_type"] != core.DeliveryTypeWebhook {
			t.Errorf("unexpected delivery type %v", body["delivery_type"])
		}
		if body["runtime_action"] != "pkg/act" {
			t.Errorf("unexpected runtime action %v", body["runtime_action"])
		}
		events, _ := body["events_of_interest"].([]any)
		if len(events) != 1 {
			t.Errorf("expected one event of interest, got %v", body["events_of_interest"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"registration_id":"reg-new","runtime_action":"pkg/act",
			"events_of_interest":[{"provider_id":"p1","event_code":"evt.a"}]}`))
	})

	created, err := client.CreateRegistration(context.Background(), "org-1", "int-1", core.RegistrationSpec{
		Name:          "extension auto registration 1",
		ClientID:      "client-1",
		DeliveryType:  core.DeliveryTypeWebhook,
		WebhookURL:    "https://hook",
		RuntimeAction: "pkg/act",
		Events:        []core.EventOfInterest{{ProviderID: "p1", EventCode: "evt.a"}},
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	if created.ID != "reg-new" {
		t.Fatalf("unexpected created registration %+v", created)
	}
}

func TestClient_DeleteRegistrationFailureIsRegistryUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/events/organizations/org-1/integrations/int-1/registrations/reg-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.DeleteRegistration(context.Background(), "org-1", "int-1", "reg-1")
	if !core.IsRegistryUnavailable(err) {
		t.Fatalf("expected registry unavailable, got %v", err)
	}
}

func TestClient_ProviderCatalog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events/org-1/providers":
			_, _ = w.Write([]byte(`{"_embedded":{"providers":[{"id":"p1","label":"Commerce","instance_id":"inst-1"}]}}`))
		case "/events/providers/p1/eventmetadata":
			_, _ = w.Write([]byte(`{"_embedded":{"eventmetadata":[{"event_code":"evt.a"},{"event_code":" "}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	providers, err := client.ListProviders(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("list providers: %v", err)
	}
	if len(providers) != 1 || providers[0].InstanceID != "inst-1" {
		t.Fatalf("unexpected providers %+v", providers)
	}
	codes, err := client.ListEventCodes(context.Background(), "p1")
	if err != nil {
		t.Fatalf("list event codes: %v", err)
	}
	if len(codes) != 1 || codes[0] != "evt.a" {
		t.Fatalf("unexpected codes %v", codes)
	}
}
