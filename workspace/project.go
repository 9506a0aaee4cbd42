package workspace

import (
	"context"
	"os"
	"strings"

	"github.com/goliatone/go-event-registrations/core"
)

const (
	KeyProject          = "project"
	KeyServices         = "project.workspace.details.services"
	KeyCredentials      = "project.workspace.details.credentials"
	KeyListeners        = "project.workspace.listeners"
	KeyRuntimeNamespace = "runtime.namespace"
	KeyRuntimeAuth      = "runtime.auth"
	KeyRuntimeAPIHost   = "runtime.apihost"

	DefaultTokenEnv = "EVENTS_ACCESS_TOKEN"

	missingProjectMessage = "Incomplete .aio configuration, please import a valid Adobe Developer Console configuration via `aio app use` first."
)

// ProjectLoader reads the project and workspace identifiers.
type ProjectLoader struct {
	store core.ConfigStore
}

func NewProjectLoader(store core.ConfigStore) *ProjectLoader {
	return &ProjectLoader{store: store}
}

func (l *ProjectLoader) LoadProject(context.Context) (core.ProjectContext, error) {
	if l == nil || l.store == nil {
		return core.ProjectContext{}, core.ConfigurationMissingError(missingProjectMessage, nil)
	}
	if _, ok := l.store.Get(KeyProject); !ok {
		return core.ProjectContext{}, core.ConfigurationMissingError(missingProjectMessage, map[string]any{"key": KeyProject})
	}
	project := core.ProjectContext{
		ProjectID:     stringAt(l.store, "project.id"),
		ProjectName:   stringAt(l.store, "project.name"),
		WorkspaceID:   stringAt(l.store, "project.workspace.id"),
		WorkspaceName: stringAt(l.store, "project.workspace.name"),
		OrgID:         stringAt(l.store, "project.org.id"),
		IMSOrgID:      stringAt(l.store, "project.org.ims_org_id"),
	}
	if project.OrgID == "" || project.ProjectID == "" || project.WorkspaceID == "" {
		return core.ProjectContext{}, core.ConfigurationMissingError(missingProjectMessage, map[string]any{
			"org_id":       project.OrgID,
			"project_id":   project.ProjectID,
			"workspace_id": project.WorkspaceID,
		})
	}
	return project, nil
}

// RuntimeSettings is the serverless runtime section of the workspace file.
type RuntimeSettings struct {
	Namespace string
	APIHost   string
	AuthKey   string
}

func LoadRuntime(store core.ConfigStore) RuntimeSettings {
	if store == nil {
		return RuntimeSettings{}
	}
	return RuntimeSettings{
		Namespace: stringAt(store, KeyRuntimeNamespace),
		APIHost:   stringAt(store, KeyRuntimeAPIHost),
		AuthKey:   stringAt(store, KeyRuntimeAuth),
	}
}

// EnvCredentials pairs the workspace service integration with an access
// token taken from the environment. Token acquisition happens elsewhere.
type EnvCredentials struct {
	Store    core.ConfigStore
	TokenEnv string
	Getenv   func(string) string
}

func NewEnvCredentials(store core.ConfigStore) *EnvCredentials {
	return &EnvCredentials{Store: store, TokenEnv: DefaultTokenEnv, Getenv: os.Getenv}
}

func (c *EnvCredentials) Credentials(_ context.Context, project core.ProjectContext) (core.WorkspaceCredentials, error) {
	if c == nil || c.Store == nil {
		return core.WorkspaceCredentials{}, core.ConfigurationMissingError(missingProjectMessage, nil)
	}
	integrationID, clientID := serviceCredential(c.Store)
	if integrationID == "" {
		return core.WorkspaceCredentials{}, core.ConfigurationMissingError(
			"workspace has no service integration credential",
			map[string]any{"workspace_id": project.WorkspaceID},
		)
	}
	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	tokenEnv := strings.TrimSpace(c.TokenEnv)
	if tokenEnv == "" {
		tokenEnv = DefaultTokenEnv
	}
	token := strings.TrimSpace(getenv(tokenEnv))
	if token == "" {
		return core.WorkspaceCredentials{}, core.ConfigurationMissingError(
			"access token is not set",
			map[string]any{"env": tokenEnv},
		)
	}
	return core.WorkspaceCredentials{
		IntegrationID: integrationID,
		ClientID:      clientID,
		AccessToken:   token,
	}, nil
}

var credentialClientKeys = []string{"oauth_server_to_server", "jwt", "oauth2"}

// serviceCredential returns the id and client id of the first credential
// whose integration type is "service".
func serviceCredential(store core.ConfigStore) (string, string) {
	raw, ok := store.Get(KeyCredentials)
	if !ok {
		return "", ""
	}
	list, ok := raw.([]any)
	if !ok {
		return "", ""
	}
	for _, item := range list {
		credential, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if kind, _ := credential["integration_type"].(string); kind != "service" {
			continue
		}
		id := strings.TrimSpace(valueString(credential["id"]))
		clientID := ""
		for _, key := range credentialClientKeys {
			if nested, ok := credential[key].(map[string]any); ok {
				if clientID = strings.TrimSpace(valueString(nested["client_id"])); clientID != "" {
					break
				}
			}
		}
		return id, clientID
	}
	return "", ""
}

var (
	_ core.ProjectLoader    = (*ProjectLoader)(nil)
	_ core.IdentityProvider = (*EnvCredentials)(nil)
)
