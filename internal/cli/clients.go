package cli

import (
	"context"
	"time"

	"github.com/goliatone/go-event-registrations/console"
	"github.com/goliatone/go-event-registrations/core"
	"github.com/goliatone/go-event-registrations/eventsapi"
	"github.com/goliatone/go-event-registrations/runtimeapi"
	"github.com/goliatone/go-event-registrations/transport"
	"github.com/goliatone/go-event-registrations/workspace"
)

// clientFactory builds the registry and control plane clients once the run
// knows its credentials and deployment target.
type clientFactory struct {
	config core.Config
	store  core.ConfigStore
	doer   transport.HTTPDoer
}

func (f *clientFactory) Clients(_ context.Context, env core.RunEnvironment) (core.RunClients, error) {
	timeout := time.Duration(f.config.Registry.TimeoutSeconds) * time.Second
	events, err := eventsapi.NewClient(eventsapi.Config{
		BaseURL:     f.config.Registry.BaseURL,
		IMSOrgID:    env.Project.IMSOrgID,
		APIKey:      env.Credentials.ClientID,
		AccessToken: env.Credentials.AccessToken,
		Timeout:     timeout,
	}, f.doer)
	if err != nil {
		return core.RunClients{}, err
	}

	target := env.Manifest.Target
	plane, err := runtimeapi.NewClient(runtimeapi.Config{
		APIHost:    target.APIHost,
		APIVersion: target.APIVersion,
		Namespace:  target.Namespace,
		AuthKey:    workspace.LoadRuntime(f.store).AuthKey,
		Timeout:    timeout,
	}, f.doer)
	if err != nil {
		return core.RunClients{}, err
	}
	return core.RunClients{Registry: events, Catalog: events, ControlPlane: plane}, nil
}

// consoleProvisioner subscribes the workspace to the required capability
// using the same credentials the run resolves.
type consoleProvisioner struct {
	identity core.IdentityProvider
	store    core.ConfigStore
	baseURL  string
	doer     transport.HTTPDoer
	logger   core.Logger
}

func (p *consoleProvisioner) EnsureCapability(ctx context.Context, project core.ProjectContext, code string) error {
	credentials, err := p.identity.Credentials(ctx, project)
	if err != nil {
		return err
	}
	client, err := console.NewClient(console.Config{
		BaseURL:     p.baseURL,
		APIKey:      credentials.ClientID,
		AccessToken: credentials.AccessToken,
	}, p.doer, console.WithConfigStore(p.store), console.WithLogger(p.logger))
	if err != nil {
		return err
	}
	return client.EnsureCapability(ctx, project, code)
}

var (
	_ core.ClientFactory         = (*clientFactory)(nil)
	_ core.CapabilityProvisioner = (*consoleProvisioner)(nil)
)
