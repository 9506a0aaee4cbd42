package registrations

import (
	"context"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"

	eventscommand "github.com/goliatone/go-event-registrations/command"
	"github.com/goliatone/go-event-registrations/core"
)

func TestNewFacade_WiresCommands(t *testing.T) {
	facade, err := NewFacade(&stubFacadeService{})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.Deploy == nil || commands.Undeploy == nil || commands.Run == nil || commands.Handle == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	if facade.Service() == nil {
		t.Fatalf("expected service accessor")
	}
}

func TestFacade_CommandDelegation(t *testing.T) {
	svc := &stubFacadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.ReconcileResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := facade.Commands().Deploy.Execute(ctx, eventscommand.DeployMessage{}); err != nil {
		t.Fatalf("execute deploy command: %v", err)
	}
	if svc.deploys != 1 {
		t.Fatalf("expected deploy delegation, got %d", svc.deploys)
	}
	result, ok := collector.Load()
	if !ok || len(result.Created) != 1 {
		t.Fatalf("unexpected deploy result: %#v", result)
	}

	if err := facade.Commands().Undeploy.Execute(context.Background(), eventscommand.UndeployMessage{}); !errors.Is(err, errUndeploy) {
		t.Fatalf("expected undeploy error to propagate, got %v", err)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

func TestNewService_FacadeOverRealService(t *testing.T) {
	svc, err := NewService(DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	for _, operation := range []string{"app:build", "", "  "} {
		collector := gocmd.NewResult[HookResult]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := facade.Commands().Handle.Execute(ctx, eventscommand.HandleMessage{Operation: operation}); err != nil {
			t.Fatalf("expected operation %q to be a no-op, got %v", operation, err)
		}
		hook, ok := collector.Load()
		if !ok || hook.Handled {
			t.Fatalf("expected unhandled hook result for %q, got %#v", operation, hook)
		}
	}
}

var errUndeploy = errors.New("registry unavailable")

type stubFacadeService struct {
	deploys int
}

func (s *stubFacadeService) Deploy(context.Context) (core.ReconcileResult, error) {
	s.deploys++
	return core.ReconcileResult{Created: []core.Registration{{ID: "reg-1"}}}, nil
}

func (s *stubFacadeService) Undeploy(context.Context) (core.ReconcileResult, error) {
	return core.ReconcileResult{}, errUndeploy
}

func (s *stubFacadeService) Run(context.Context) (core.ReconcileResult, func(), error) {
	return core.ReconcileResult{}, func() {}, nil
}

func (s *stubFacadeService) Handle(context.Context, string) (core.HookResult, error) {
	return core.HookResult{}, nil
}

var _ eventscommand.LifecycleService = (*stubFacadeService)(nil)
