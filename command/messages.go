package command

import (
	"github.com/goliatone/go-event-registrations/core"
)

const (
	TypeDeploy   = "events.command.deploy"
	TypeUndeploy = "events.command.undeploy"
	TypeRun      = "events.command.run"
	TypeHandle   = "events.command.hook.handle"
)

type DeployMessage struct{}

func (DeployMessage) Type() string { return TypeDeploy }

type UndeployMessage struct{}

func (UndeployMessage) Type() string { return TypeUndeploy }

// RunMessage reconciles once and leaves an interrupt cleanup armed.
type RunMessage struct{}

func (RunMessage) Type() string { return TypeRun }

// HandleMessage carries the raw operation name a host tool reports. Unknown
// and blank names are accepted and handled as a no-op.
type HandleMessage struct {
	Operation string
}

func (HandleMessage) Type() string { return TypeHandle }

// RunOutcome is stored as the run command result so callers can detach the
// interrupt cleanup once the session ends normally.
type RunOutcome struct {
	Result core.ReconcileResult
	Detach func()
}
