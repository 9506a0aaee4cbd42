package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-event-registrations/core"
)

// LifecycleService is the subset of core.Service the commands drive.
type LifecycleService interface {
	Deploy(ctx context.Context) (core.ReconcileResult, error)
	Undeploy(ctx context.Context) (core.ReconcileResult, error)
	Run(ctx context.Context) (core.ReconcileResult, func(), error)
	Handle(ctx context.Context, operation string) (core.HookResult, error)
}

type DeployCommand struct {
	service LifecycleService
}

func NewDeployCommand(service LifecycleService) *DeployCommand {
	return &DeployCommand{service: service}
}

func (c *DeployCommand) Execute(ctx context.Context, _ DeployMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: deploy service is required")
	}
	out, err := c.service.Deploy(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UndeployCommand struct {
	service LifecycleService
}

func NewUndeployCommand(service LifecycleService) *UndeployCommand {
	return &UndeployCommand{service: service}
}

func (c *UndeployCommand) Execute(ctx context.Context, _ UndeployMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: undeploy service is required")
	}
	out, err := c.service.Undeploy(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RunCommand struct {
	service LifecycleService
}

func NewRunCommand(service LifecycleService) *RunCommand {
	return &RunCommand{service: service}
}

func (c *RunCommand) Execute(ctx context.Context, _ RunMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: run service is required")
	}
	out, detach, err := c.service.Run(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, RunOutcome{Result: out, Detach: detach})
	return nil
}

type HandleCommand struct {
	service LifecycleService
}

func NewHandleCommand(service LifecycleService) *HandleCommand {
	return &HandleCommand{service: service}
}

func (c *HandleCommand) Execute(ctx context.Context, msg HandleMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: hook service is required")
	}
	out, err := c.service.Handle(ctx, msg.Operation)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
