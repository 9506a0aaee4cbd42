package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-event-registrations/config"
	"github.com/goliatone/go-event-registrations/console"
	"github.com/goliatone/go-event-registrations/core"
	"github.com/goliatone/go-event-registrations/manifest"
	"github.com/goliatone/go-event-registrations/prompt"
	sqlstore "github.com/goliatone/go-event-registrations/store/sql"
	"github.com/goliatone/go-event-registrations/transport"
	"github.com/goliatone/go-event-registrations/workspace"
)

// newLogger builds the process logger. It also serves as the provider for
// named component loggers.
func newLogger(out io.Writer, debug bool) *glog.BaseLogger {
	level := "warn"
	if debug {
		level = "debug"
	}
	return glog.NewLogger(
		glog.WithWriter(out),
		glog.WithLevel(level),
		glog.WithLoggerTypeConsole(),
	)
}

// LedgerDriverWorkspace keeps the ledger inside the workspace file instead
// of a database.
const LedgerDriverWorkspace = "workspace"

type Options struct {
	ManifestPath  string
	WorkspacePath string
	ConfigFile    string
	Quiet         bool
	Debug         bool

	Stdout io.Writer
	Stderr io.Writer
	// HTTPClient overrides the transport used by every remote client.
	HTTPClient transport.HTTPDoer
	// Interrupt overrides the signal based interrupt source.
	Interrupt InterruptWaiter
}

// InterruptWaiter is an interrupt source the run command can block on until
// its cleanups have finished.
type InterruptWaiter interface {
	core.InterruptSource
	Done() <-chan struct{}
}

// App is a fully wired service plus whatever must be released after the
// operation completes.
type App struct {
	Service   *core.Service
	Interrupt InterruptWaiter
	closers   []func() error
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func Build(ctx context.Context, opts Options) (*App, error) {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := core.NewCfgxConfigProvider(config.NewViperLoader(opts.ConfigFile)).Load(ctx, core.DefaultConfig())
	if err != nil {
		return nil, err
	}

	logger := newLogger(stderr, opts.Debug)
	store, err := workspace.OpenFileStore(opts.WorkspacePath)
	if err != nil {
		return nil, err
	}
	identity := workspace.NewEnvCredentials(store)
	runtime := workspace.LoadRuntime(store)
	fallback := core.DeploymentTarget{
		Namespace:  runtime.Namespace,
		APIHost:    runtime.APIHost,
		APIVersion: cfg.Runtime.APIVersion,
	}

	interrupt := opts.Interrupt
	if interrupt == nil {
		interrupt = core.NewSignalInterruptSource()
	}

	app := &App{Interrupt: interrupt}
	options := []core.Option{
		core.WithLoggerProvider(logger),
		core.WithLogger(logger),
		core.WithProjectLoader(workspace.NewProjectLoader(store)),
		core.WithIdentityProvider(identity),
		core.WithCapabilityProvisioner(&consoleProvisioner{
			identity: identity,
			store:    store,
			baseURL:  console.DefaultBaseURL,
			doer:     opts.HTTPClient,
			logger:   logger,
		}),
		core.WithManifestLoader(manifest.NewLoader(opts.ManifestPath, fallback)),
		core.WithClientFactory(&clientFactory{config: cfg, store: store, doer: opts.HTTPClient}),
		core.WithProviderChooser(prompt.NewChooser(stdout)),
		core.WithProgressReporter(prompt.NewSpinner(stderr, opts.Quiet)),
		core.WithInterruptSource(interrupt),
	}

	ledger, closeLedger, err := openLedger(ctx, cfg, store, opts.Debug)
	if err != nil {
		return nil, err
	}
	if closeLedger != nil {
		app.closers = append(app.closers, closeLedger)
	}
	if ledger != nil {
		options = append(options, core.WithLedgerStore(ledger))
	}

	svc, err := core.NewService(cfg, options...)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Service = svc
	return app, nil
}

// openLedger returns nil when the remote registry is the source of truth.
// An empty DSN keeps the ledger in the workspace file.
func openLedger(ctx context.Context, cfg core.Config, store core.ConfigStore, debug bool) (core.LedgerStore, func() error, error) {
	if cfg.ActualState != core.ActualStateLedger {
		return nil, nil, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Ledger.Driver))
	if driver == LedgerDriverWorkspace || strings.TrimSpace(cfg.Ledger.DSN) == "" {
		return workspace.NewConfigLedger(store), nil, nil
	}

	client, err := sqlstore.Open(ctx, driver, cfg.Ledger.DSN, debug)
	if err != nil {
		return nil, nil, err
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return factory.LedgerStore(), client.Close, nil
}
