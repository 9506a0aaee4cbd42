// Package cli wires the event registration service to the events-hook
// command line.
package cli

import (
	"context"
	"fmt"
	"io"

	gocmd "github.com/goliatone/go-command"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-event-registrations/adapters/gocommand"
	eventscommand "github.com/goliatone/go-event-registrations/command"
	"github.com/goliatone/go-event-registrations/core"
)

// Exit codes for the events-hook binary.
const (
	ExitCodeSuccess       = 0
	ExitCodeError         = 1
	ExitCodeConfiguration = 2
)

// NewRootCommand builds the events-hook command tree. opts carries the
// writers and test seams; flags fill in the rest.
func NewRootCommand(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "events-hook",
		Short: "Reconcile webhook event registrations with the app manifest",
		Long: `events-hook keeps the event registrations of a workspace integration in
sync with the event-listener-for relations declared in the app manifest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ManifestPath, "manifest", "m", "app.config.yaml", "application manifest")
	flags.StringVarP(&opts.WorkspacePath, "workspace", "w", ".aio", "workspace configuration file")
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "optional events config file")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "hide progress output")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newOperationCommand(&opts, core.OperationDeploy, "Create missing registrations and delete obsolete ones"),
		newOperationCommand(&opts, core.OperationUndeploy, "Delete every registration of the integration"),
		newOperationCommand(&opts, core.OperationRun, "Reconcile, then remove registrations on interrupt"),
	)
	return root
}

// Execute runs the command tree and maps the outcome to an exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(Options{Stdout: stdout, Stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitCodeSuccess
}

func exitCode(err error) int {
	if core.IsConfigurationMissing(err) {
		return ExitCodeConfiguration
	}
	return ExitCodeError
}

func newOperationCommand(opts *Options, operation core.Operation, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(operation),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			local := *opts
			local.Stdout = cmd.OutOrStdout()
			local.Stderr = cmd.ErrOrStderr()
			return runOperation(cmd.Context(), local, operation)
		},
	}
}

func runOperation(ctx context.Context, opts Options, operation core.Operation) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	adapter := gocommand.NewRegistryAdapter(nil)
	unsubscribe, err := gocommand.RegisterLifecycle(adapter, app.Service)
	if err != nil {
		return err
	}
	defer unsubscribe()
	if err := adapter.Initialize(); err != nil {
		return err
	}

	switch operation {
	case core.OperationDeploy:
		result, err := dispatchReconcile(ctx, eventscommand.DeployMessage{})
		if err != nil {
			return err
		}
		renderSummary(opts.Stdout, operation, result)
	case core.OperationUndeploy:
		result, err := dispatchReconcile(ctx, eventscommand.UndeployMessage{})
		if err != nil {
			return err
		}
		renderSummary(opts.Stdout, operation, result)
	case core.OperationRun:
		collector := gocmd.NewResult[eventscommand.RunOutcome]()
		if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), eventscommand.RunMessage{}); err != nil {
			return err
		}
		outcome, _ := collector.Load()
		renderSummary(opts.Stdout, operation, outcome.Result)
		fmt.Fprintln(opts.Stdout, "Registrations stay active until interrupted (Ctrl+C).")
		select {
		case <-app.Interrupt.Done():
		case <-ctx.Done():
			if outcome.Detach != nil {
				outcome.Detach()
			}
		}
	}
	return nil
}

func dispatchReconcile[T any](ctx context.Context, msg T) (core.ReconcileResult, error) {
	collector := gocmd.NewResult[core.ReconcileResult]()
	if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return core.ReconcileResult{}, err
	}
	result, _ := collector.Load()
	return result, nil
}
