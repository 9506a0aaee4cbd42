// Package runtimeapi talks to the serverless runtime REST API to inspect and
// create the packages and sequences used for event routing.
package runtimeapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-event-registrations/core"
	"github.com/goliatone/go-event-registrations/transport"
)

const defaultAPIVersion = "v1"

type Config struct {
	APIHost    string
	APIVersion string
	Namespace  string
	// AuthKey is the "user:password" runtime credential.
	AuthKey string
	Timeout time.Duration
}

type Client struct {
	rest      *transport.RESTAdapter
	apiHost   string
	version   string
	namespace string
	timeout   time.Duration
}

func NewClient(cfg Config, doer transport.HTTPDoer) (*Client, error) {
	target := core.DeploymentTarget{
		Namespace:  strings.TrimSpace(cfg.Namespace),
		APIHost:    strings.TrimRight(strings.TrimSpace(cfg.APIHost), "/"),
		APIVersion: strings.TrimSpace(cfg.APIVersion),
	}
	if err := target.Validate(); err != nil {
		return nil, core.ConfigurationMissingError(err.Error(), nil)
	}
	authKey := strings.TrimSpace(cfg.AuthKey)
	if authKey == "" {
		return nil, core.ConfigurationMissingError("runtimeapi: auth key is required", nil)
	}
	if target.APIVersion == "" {
		target.APIVersion = defaultAPIVersion
	}
	rest := transport.NewRESTAdapter(doer)
	rest.DefaultHeaders["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(authKey))
	rest.DefaultHeaders["Accept"] = "application/json"
	return &Client{
		rest:      rest,
		apiHost:   target.APIHost,
		version:   target.APIVersion,
		namespace: target.Namespace,
		timeout:   cfg.Timeout,
	}, nil
}

func (c *Client) PackageExists(ctx context.Context, name string) (bool, error) {
	return c.exists(ctx, "get_package", c.entityURL("packages", name))
}

func (c *Client) CreateOrUpdatePackage(ctx context.Context, spec core.PackageSpec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return core.ExternalFailureError(fmt.Errorf("runtimeapi: package name is required"), "put_package", nil)
	}
	body := packageBody{
		Namespace:  c.namespace,
		Name:       name,
		Parameters: keyValues(spec.Parameters),
	}
	if spec.Binding != nil {
		body.Binding = &bindingBody{Namespace: spec.Binding.Namespace, Name: spec.Binding.Name}
	}
	return c.put(ctx, "put_package", name, c.entityURL("packages", name), true, body)
}

func (c *Client) ActionExists(ctx context.Context, name string) (bool, error) {
	return c.exists(ctx, "get_action", c.entityURL("actions", name))
}

func (c *Client) CreateSequence(ctx context.Context, spec core.SequenceSpec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" || len(spec.Components) == 0 {
		return core.ExternalFailureError(fmt.Errorf("runtimeapi: sequence name and components are required"), "put_sequence", nil)
	}
	annotations := map[string]any{}
	for key, value := range spec.Annotations {
		annotations[key] = value
	}
	if spec.Web {
		annotations["web-export"] = true
	}
	body := actionBody{
		Namespace: c.namespace,
		Name:      name,
		Exec: execBody{
			Kind:       "sequence",
			Components: append([]string(nil), spec.Components...),
		},
		Annotations: annotationList(annotations),
	}
	return c.put(ctx, "put_sequence", name, c.entityURL("actions", name), false, body)
}

// entityURL accepts both "pkg/entity" and fully qualified "/ns/pkg/entity"
// names; a qualified name overrides the configured namespace.
func (c *Client) entityURL(collection, name string) string {
	namespace := c.namespace
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "/") {
		parts := strings.SplitN(strings.TrimPrefix(name, "/"), "/", 2)
		namespace = parts[0]
		name = ""
		if len(parts) == 2 {
			name = parts[1]
		}
	}
	segments := strings.Split(name, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/api/%s/namespaces/%s/%s/%s",
		c.apiHost,
		c.version,
		url.PathEscape(namespace),
		collection,
		strings.Join(segments, "/"),
	)
}

func (c *Client) exists(ctx context.Context, operation, endpoint string) (bool, error) {
	res, err := c.rest.DoJSON(ctx, transport.Request{Method: http.MethodGet, URL: endpoint, Timeout: c.timeout}, nil, nil)
	if err == nil {
		return true, nil
	}
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, c.mapError(err, operation, "")
}

// put writes one entity. Sequences are created with overwrite=false so a
// concurrent creation comes back as a 409.
func (c *Client) put(ctx context.Context, operation, name, endpoint string, overwrite bool, body any) error {
	_, err := c.rest.DoJSON(ctx, transport.Request{
		Method:  http.MethodPut,
		URL:     endpoint,
		Query:   map[string]string{"overwrite": strconv.FormatBool(overwrite)},
		Timeout: c.timeout,
	}, body, nil)
	if err != nil {
		return c.mapError(err, operation, name)
	}
	return nil
}

func (c *Client) mapError(err error, operation, name string) error {
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusConflict {
			return core.ProvisioningConflictError(err, name)
		}
		return core.ExternalFailureError(err, operation, map[string]any{"status_code": statusErr.StatusCode})
	}
	return core.ExternalFailureError(err, operation, nil)
}

type bindingBody struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type keyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type packageBody struct {
	Namespace  string       `json:"namespace"`
	Name       string       `json:"name"`
	Binding    *bindingBody `json:"binding,omitempty"`
	Parameters []keyValue   `json:"parameters,omitempty"`
}

type execBody struct {
	Kind       string   `json:"kind"`
	Components []string `json:"components"`
}

type actionBody struct {
	Namespace   string     `json:"namespace"`
	Name        string     `json:"name"`
	Exec        execBody   `json:"exec"`
	Annotations []keyValue `json:"annotations,omitempty"`
}

func keyValues(in []core.KeyValue) []keyValue {
	if len(in) == 0 {
		return nil
	}
	out := make([]keyValue, 0, len(in))
	for _, kv := range in {
		out = append(out, keyValue{Key: kv.Key, Value: kv.Value})
	}
	return out
}

func annotationList(in map[string]any) []keyValue {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]keyValue, 0, len(keys))
	for _, key := range keys {
		out = append(out, keyValue{Key: key, Value: in[key]})
	}
	return out
}

var _ core.ControlPlane = (*Client)(nil)
