// Package console enables developer console services on the workspace the
// registrations belong to.
package console

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-event-registrations/core"
	"github.com/goliatone/go-event-registrations/transport"
)

const (
	DefaultBaseURL = "https://developers.adobe.io"

	// ServicesKey is where the enabled service list is recorded in the
	// workspace config.
	ServicesKey = "project.workspace.details.services"
)

var serviceDisplayNames = map[string]string{
	"AdobeIOManagementAPISDK": "I/O Management API",
}

type Config struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	Timeout     time.Duration
}

// ServiceProperties is one service subscription on a workspace.
type ServiceProperties struct {
	Name           string `json:"name"`
	SDKCode        string `json:"sdkCode"`
	Roles          any    `json:"roles"`
	LicenseConfigs any    `json:"licenseConfigs"`
}

type Client struct {
	rest    *transport.RESTAdapter
	baseURL string
	timeout time.Duration
	store   core.ConfigStore
	logger  core.Logger
}

type Option func(*Client)

// WithConfigStore records the service list after a subscription change.
func WithConfigStore(store core.ConfigStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(cfg Config, doer transport.HTTPDoer, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, core.ConfigurationMissingError("console: access token is required", nil)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rest := transport.NewRESTAdapter(doer)
	rest.DefaultHeaders["Authorization"] = "Bearer " + token
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		rest.DefaultHeaders["x-api-key"] = key
	}
	client := &Client{rest: rest, baseURL: baseURL, timeout: cfg.Timeout}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) WorkspaceServices(ctx context.Context, project core.ProjectContext) ([]ServiceProperties, error) {
	var services []ServiceProperties
	if _, err := c.rest.DoJSON(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     c.servicesURL(project),
		Timeout: c.timeout,
	}, nil, &services); err != nil {
		return nil, core.ExternalFailureError(err, "list_workspace_services", map[string]any{"workspace_id": project.WorkspaceID})
	}
	return services, nil
}

func (c *Client) SubscribeServices(ctx context.Context, project core.ProjectContext, services []ServiceProperties) error {
	if _, err := c.rest.DoJSON(ctx, transport.Request{
		Method:  http.MethodPut,
		URL:     c.servicesURL(project),
		Timeout: c.timeout,
	}, services, nil); err != nil {
		return core.ExternalFailureError(err, "subscribe_workspace_services", map[string]any{"workspace_id": project.WorkspaceID})
	}
	return nil
}

// EnsureCapability subscribes the workspace to code when it is not already
// enabled. The full list is sent back because the console replaces the
// workspace subscriptions wholesale.
func (c *Client) EnsureCapability(ctx context.Context, project core.ProjectContext, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	if strings.TrimSpace(project.OrgID) == "" || strings.TrimSpace(project.ProjectID) == "" || strings.TrimSpace(project.WorkspaceID) == "" {
		return core.ConfigurationMissingError("console: org, project and workspace ids are required", nil)
	}
	services, err := c.WorkspaceServices(ctx, project)
	if err != nil {
		return err
	}
	for _, service := range services {
		if service.SDKCode == code {
			c.debug(ctx, "workspace service already enabled", "code", code)
			return nil
		}
	}

	c.debug(ctx, "workspace service missing, adding it", "code", code)
	name := serviceDisplayNames[code]
	if name == "" {
		name = code
	}
	services = append(services, ServiceProperties{Name: name, SDKCode: code})
	if err := c.SubscribeServices(ctx, project, services); err != nil {
		return err
	}
	if c.store == nil {
		return nil
	}
	recorded := make([]map[string]any, 0, len(services))
	for _, service := range services {
		recorded = append(recorded, map[string]any{"name": service.Name, "code": service.SDKCode})
	}
	if err := c.store.Set(ServicesKey, recorded, true); err != nil {
		return fmt.Errorf("console: record workspace services: %w", err)
	}
	return nil
}

func (c *Client) servicesURL(project core.ProjectContext) string {
	return fmt.Sprintf("%s/console/organizations/%s/projects/%s/workspaces/%s/services",
		c.baseURL,
		url.PathEscape(project.OrgID),
		url.PathEscape(project.ProjectID),
		url.PathEscape(project.WorkspaceID),
	)
}

func (c *Client) debug(ctx context.Context, msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.WithContext(ctx).Debug(msg, args...)
}

var _ core.CapabilityProvisioner = (*Client)(nil)
