// Package eventsapi is the HTTP client for the event registration registry
// and its provider catalog.
package eventsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-event-registrations/core"
	"github.com/goliatone/go-event-registrations/transport"
)

const DefaultBaseURL = "https://api.adobe.io"

type Config struct {
	BaseURL     string
	IMSOrgID    string
	APIKey      string
	AccessToken string
	Timeout     time.Duration
}

type Client struct {
	rest    *transport.RESTAdapter
	baseURL string
	timeout time.Duration
}

func NewClient(cfg Config, doer transport.HTTPDoer) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, core.ConfigurationMissingError("eventsapi: access token is required", nil)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.ConfigurationMissingError("eventsapi: api key is required", nil)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rest := transport.NewRESTAdapter(doer)
	rest.DefaultHeaders["Authorization"] = "Bearer " + strings.TrimSpace(cfg.AccessToken)
	rest.DefaultHeaders["x-api-key"] = strings.TrimSpace(cfg.APIKey)
	rest.DefaultHeaders["Accept"] = "application/hal+json"
	if org := strings.TrimSpace(cfg.IMSOrgID); org != "" {
		rest.DefaultHeaders["x-gw-ims-org-id"] = org
	}
	return &Client{rest: rest, baseURL: baseURL, timeout: cfg.Timeout}, nil
}

func (c *Client) ListRegistrations(ctx context.Context, orgID, integrationID string) ([]core.Registration, error) {
	res, err := c.call(ctx, "list_registrations", http.MethodGet, c.registrationsURL(orgID, integrationID), nil, nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeRegistrationList(res.Body)
	if err != nil {
		return nil, core.RegistryUnavailableError(err, "list_registrations", nil)
	}
	out := make([]core.Registration, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (c *Client) CreateRegistration(ctx context.Context, orgID, integrationID string, spec core.RegistrationSpec) (core.Registration, error) {
	var created registrationRecord
	if _, err := c.call(ctx, "create_registration", http.MethodPost, c.registrationsURL(orgID, integrationID), registrationBodyFrom(spec), &created); err != nil {
		return core.Registration{}, err
	}
	registration := created.toDomain()
	if strings.TrimSpace(registration.ID) == "" {
		return core.Registration{}, core.RegistryUnavailableError(
			fmt.Errorf("eventsapi: create response carried no registration id"),
			"create_registration",
			nil,
		)
	}
	return registration, nil
}

func (c *Client) DeleteRegistration(ctx context.Context, orgID, integrationID, registrationID string) error {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return core.RegistryUnavailableError(fmt.Errorf("eventsapi: registration id is required"), "delete_registration", nil)
	}
	endpoint := c.registrationsURL(orgID, integrationID) + "/" + url.PathEscape(registrationID)
	_, err := c.call(ctx, "delete_registration", http.MethodDelete, endpoint, nil, nil)
	return err
}

func (c *Client) ListProviders(ctx context.Context, orgID string) ([]core.ProviderSummary, error) {
	var page providerPage
	endpoint := fmt.Sprintf("%s/events/%s/providers", c.baseURL, url.PathEscape(orgID))
	if _, err := c.call(ctx, "list_providers", http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	out := make([]core.ProviderSummary, 0, len(page.Embedded.Providers))
	for _, provider := range page.Embedded.Providers {
		out = append(out, core.ProviderSummary{
			ID:         provider.ID,
			Label:      provider.Label,
			InstanceID: provider.InstanceID,
		})
	}
	return out, nil
}

func (c *Client) ListEventCodes(ctx context.Context, providerID string) ([]string, error) {
	var page eventMetadataPage
	endpoint := fmt.Sprintf("%s/events/providers/%s/eventmetadata", c.baseURL, url.PathEscape(providerID))
	if _, err := c.call(ctx, "list_event_metadata", http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(page.Embedded.EventMetadata))
	for _, metadata := range page.Embedded.EventMetadata {
		if code := strings.TrimSpace(metadata.EventCode); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (c *Client) registrationsURL(orgID, integrationID string) string {
	return fmt.Sprintf("%s/events/organizations/%s/integrations/%s/registrations",
		c.baseURL,
		url.PathEscape(strings.TrimSpace(orgID)),
		url.PathEscape(strings.TrimSpace(integrationID)),
	)
}

// call performs one request. Every failure, transport or status, surfaces
// as a registry unavailable error.
func (c *Client) call(ctx context.Context, operation, method, endpoint string, in any, out any) (transport.Response, error) {
	if c == nil || c.rest == nil {
		return transport.Response{}, core.RegistryUnavailableError(fmt.Errorf("eventsapi: client is not configured"), operation, nil)
	}
	res, err := c.rest.DoJSON(ctx, transport.Request{Method: method, URL: endpoint, Timeout: c.timeout}, in, out)
	if err != nil {
		metadata := map[string]any{"method": method}
		var statusErr *transport.StatusError
		if errors.As(err, &statusErr) {
			metadata["status_code"] = statusErr.StatusCode
		}
		return res, core.RegistryUnavailableError(err, operation, metadata)
	}
	return res, nil
}

func decodeRegistrationList(body []byte) ([]registrationRecord, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var records []registrationRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var page registrationPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}
	return page.Embedded.Registrations, nil
}

var (
	_ core.RegistryClient  = (*Client)(nil)
	_ core.ProviderCatalog = (*Client)(nil)
)
