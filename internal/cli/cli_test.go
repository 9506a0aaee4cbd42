package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-event-registrations/core"
	"github.com/goliatone/go-event-registrations/workspace"
)

const workspaceFixture = `{
  "project": {
    "id": "proj-1",
    "name": "demo",
    "org": {"id": "org-1", "ims_org_id": "ims@AdobeOrg"},
    "workspace": {
      "id": "ws-1",
      "name": "Stage",
      "details": {
        "credentials": [
          {"id": "int-1", "integration_type": "service", "oauth_server_to_server": {"client_id": "client-1"}}
        ]
      }
    }
  },
  "runtime": {"namespace": "ns-1", "apihost": "https://runtime.example", "auth": "u:p"}
}`

const manifestFixture = `application:
  runtimeManifest:
    packages:
      demo:
        actions:
          hello:
            function: actions/hello/index.js
`

// handlerDoer serves every request in process, whatever its host.
type handlerDoer struct {
	handler http.Handler
}

func (d handlerDoer) Do(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	d.handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

type fakeBackend struct {
	mu      sync.Mutex
	deleted []string
	paths   []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.paths = append(b.paths, r.Method+" "+r.URL.Path)
	b.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/workspaces/ws-1/services") && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"name":"I/O Management API","sdkCode":"AdobeIOManagementAPISDK"}]`)
	case r.URL.Path == "/events/organizations/org-1/integrations/int-1/registrations" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/hal+json")
		fmt.Fprint(w, `{"_embedded":{"registrations":[{"registration_id":"reg-1","name":"old","events_of_interest":[{"provider_id":"p1","event_code":"evt.a"}]}]}}`)
	case strings.HasPrefix(r.URL.Path, "/events/organizations/org-1/integrations/int-1/registrations/") && r.Method == http.MethodDelete:
		b.mu.Lock()
		b.deleted = append(b.deleted, filepath.Base(r.URL.Path))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

type readyInterrupt struct {
	done       chan struct{}
	registered int
}

func newReadyInterrupt() *readyInterrupt {
	done := make(chan struct{})
	close(done)
	return &readyInterrupt{done: done}
}

func (i *readyInterrupt) OnInterrupt(func(context.Context)) func() {
	i.registered++
	return func() {}
}

func (i *readyInterrupt) Done() <-chan struct{} { return i.done }

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	workspacePath := filepath.Join(dir, ".aio")
	manifestPath := filepath.Join(dir, "app.config.yaml")
	if err := os.WriteFile(workspacePath, []byte(workspaceFixture), 0o600); err != nil {
		t.Fatalf("write workspace: %v", err)
	}
	if err := os.WriteFile(manifestPath, []byte(manifestFixture), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return workspacePath, manifestPath
}

func TestRootCommand_UndeployDeletesAndPrintsSummary(t *testing.T) {
	t.Setenv(workspace.DefaultTokenEnv, "token-1")
	workspacePath, manifestPath := writeFixtures(t)
	backend := &fakeBackend{}

	var stdout, stderr bytes.Buffer
	root := NewRootCommand(Options{HTTPClient: handlerDoer{handler: backend}, Interrupt: newReadyInterrupt()})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"undeploy", "--workspace", workspacePath, "--manifest", manifestPath, "--quiet"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("undeploy: %v (stderr %q, calls %v)", err, stderr.String(), backend.paths)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != "reg-1" {
		t.Fatalf("expected reg-1 to be deleted, got %v", backend.deleted)
	}
	out := stdout.String()
	if !strings.Contains(out, "deleted") || !strings.Contains(out, "reg-1") {
		t.Fatalf("expected summary table, got %q", out)
	}
}

func TestRootCommand_RunWaitsForInterrupt(t *testing.T) {
	t.Setenv(workspace.DefaultTokenEnv, "token-1")
	workspacePath, manifestPath := writeFixtures(t)
	interrupt := newReadyInterrupt()

	var stdout bytes.Buffer
	root := NewRootCommand(Options{HTTPClient: handlerDoer{handler: &fakeBackend{}}, Interrupt: interrupt})
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "-w", workspacePath, "-m", manifestPath, "-q"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if interrupt.registered != 1 {
		t.Fatalf("expected one interrupt cleanup, got %d", interrupt.registered)
	}
	if !strings.Contains(stdout.String(), "until interrupted") {
		t.Fatalf("expected run notice, got %q", stdout.String())
	}
}

func TestExecute_MissingWorkspaceFails(t *testing.T) {
	t.Setenv(workspace.DefaultTokenEnv, "token-1")
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{
		"deploy",
		"--workspace", filepath.Join(dir, ".aio"),
		"--manifest", filepath.Join(dir, "app.config.yaml"),
		"--quiet",
	}, &stdout, &stderr)
	if code == ExitCodeSuccess {
		t.Fatalf("expected failure exit code")
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Fatalf("expected error output, got %q", stderr.String())
	}
}

func TestExitCode_ConfigurationMissing(t *testing.T) {
	if got := exitCode(core.ConfigurationMissingError("no workspace", nil)); got != ExitCodeConfiguration {
		t.Fatalf("expected configuration exit code, got %d", got)
	}
	if got := exitCode(fmt.Errorf("boom")); got != ExitCodeError {
		t.Fatalf("expected generic exit code, got %d", got)
	}
}

func TestOpenLedger_SelectsStore(t *testing.T) {
	ctx := context.Background()
	store := workspace.NewMemoryStore(nil)

	ledger, closer, err := openLedger(ctx, core.DefaultConfig(), store, false)
	if err != nil || ledger != nil || closer != nil {
		t.Fatalf("expected no ledger for remote strategy, got %v %v", ledger, err)
	}

	cfg := core.DefaultConfig()
	cfg.ActualState = core.ActualStateLedger
	ledger, closer, err = openLedger(ctx, cfg, store, false)
	if err != nil {
		t.Fatalf("open workspace ledger: %v", err)
	}
	if _, ok := ledger.(*workspace.ConfigLedger); !ok || closer != nil {
		t.Fatalf("expected workspace ledger without closer, got %T", ledger)
	}

	cfg.Ledger.DSN = fmt.Sprintf("file:cli-ledger-%d?mode=memory&cache=shared", time.Now().UnixNano())
	ledger, closer, err = openLedger(ctx, cfg, store, false)
	if err != nil {
		t.Fatalf("open sql ledger: %v", err)
	}
	if ledger == nil || closer == nil {
		t.Fatalf("expected sql ledger with closer")
	}
	target := core.Target{OrgID: "org-1", IntegrationID: "int-1"}
	if err := ledger.Append(ctx, target, core.LedgerEntry{EventType: "evt.a", RegistrationID: "reg-1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRenderSummary_ListsChanges(t *testing.T) {
	var out bytes.Buffer
	renderSummary(&out, core.OperationDeploy, core.ReconcileResult{
		Created: []core.Registration{{
			ID:     "reg-new",
			Name:   "auto",
			Events: []core.EventOfInterest{{ProviderID: "p1", EventCode: "evt.a"}, {ProviderID: "p1", EventCode: "evt.b"}},
		}},
		Deleted:       []string{"reg-old"},
		FailedDeletes: []string{"reg-stuck"},
		Skipped:       2,
	})
	text := out.String()
	for _, want := range []string{"reg-new (auto)", "evt.a, evt.b", "reg-old", "delete failed", "reg-stuck"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in summary %q", want, text)
		}
	}
}

func TestLogger_FieldsAndLevels(t *testing.T) {
	var out bytes.Buffer
	quiet := newLogger(&out, false)
	quiet.Debug("hidden")
	quiet.Info("hidden")
	if out.Len() != 0 {
		t.Fatalf("expected output below warn to be filtered, got %q", out.String())
	}

	verbose := newLogger(&out, true)
	verbose.WithFields(map[string]any{"operation": "deploy"}).Info("reconciled", "created", 1)
	text := out.String()
	if !strings.Contains(text, "msg=reconciled") || !strings.Contains(text, "operation=deploy") || !strings.Contains(text, "created=1") {
		t.Fatalf("unexpected log line %q", text)
	}

	named := verbose.GetLogger("events")
	named.Warn("careful")
	if !strings.Contains(out.String(), "logger=events") {
		t.Fatalf("expected named logger attribute, got %q", out.String())
	}
}
