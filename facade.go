package registrations

import (
	"fmt"

	eventscommand "github.com/goliatone/go-event-registrations/command"
)

type Commands struct {
	Deploy   *eventscommand.DeployCommand
	Undeploy *eventscommand.UndeployCommand
	Run      *eventscommand.RunCommand
	Handle   *eventscommand.HandleCommand
}

type Facade struct {
	service  eventscommand.LifecycleService
	commands Commands
}

func NewFacade(service eventscommand.LifecycleService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("registrations: lifecycle service is required")
	}
	facade := &Facade{service: service}
	facade.commands = Commands{
		Deploy:   eventscommand.NewDeployCommand(service),
		Undeploy: eventscommand.NewUndeployCommand(service),
		Run:      eventscommand.NewRunCommand(service),
		Handle:   eventscommand.NewHandleCommand(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() eventscommand.LifecycleService {
	if f == nil {
		return nil
	}
	return f.service
}
