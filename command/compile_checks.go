package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-event-registrations/core"
)

var (
	_ gocmd.Commander[DeployMessage]   = (*DeployCommand)(nil)
	_ gocmd.Commander[UndeployMessage] = (*UndeployCommand)(nil)
	_ gocmd.Commander[RunMessage]      = (*RunCommand)(nil)
	_ gocmd.Commander[HandleMessage]   = (*HandleCommand)(nil)

	_ LifecycleService = (*core.Service)(nil)
)
