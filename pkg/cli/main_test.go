package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nimburion/documentdb/pkg/config"
	"github.com/nimburion/documentdb/pkg/health"
	"github.com/nimburion/documentdb/pkg/observability/logger"
	"github.com/nimburion/documentdb/pkg/repository/document"
	"github.com/nimburion/documentdb/pkg/store"
	"github.com/nimburion/documentdb/pkg/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const testPrefix = "CLITEST"

type note struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

func (n note) DocumentID() string   { return n.ID }
func (n note) PartitionKey() string { return n.Topic }

// noteCommand writes one note through the instrumented connector.
func noteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:  "note",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt, ctx, cancel, err := app.Open(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer rt.closeInto(&err)

			connector, err := Connector[note](rt)
			if err != nil {
				return err
			}
			conn, err := connector.Open(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)
			_, err = conn.Create(ctx, note{ID: "1", Topic: "go", Text: "hello"})
			return err
		},
	}
}

func execute(t *testing.T, opts Options, args ...string) (string, error) {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "clitest"
	}
	opts.EnvPrefix = testPrefix
	t.Setenv(testPrefix+"_LOG_LEVEL", "error")

	cmd := NewRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, Options{}, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	var info version.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version output is not json: %v\n%s", err, out)
	}
	if info.Service != "clitest" {
		t.Fatalf("service = %q, want clitest", info.Service)
	}

	out, err = execute(t, Options{}, "version", "-o", "yaml")
	if err != nil {
		t.Fatalf("version -o yaml error = %v", err)
	}
	info = version.Info{}
	if err := yaml.Unmarshal([]byte(out), &info); err != nil || info.Service != "clitest" {
		t.Fatalf("yaml output = %q (err %v)", out, err)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	if _, err := execute(t, Options{}, "version", "--output", "xml"); err == nil {
		t.Fatal("expected unsupported output error")
	}
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name      string
		probe     error
		wantErr   bool
		wantState health.Status
	}{
		{name: "memory store is healthy", wantState: health.StatusHealthy},
		{name: "failing probe", probe: errors.New("boom"), wantErr: true, wantState: health.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{
				HealthChecks: func(rt *Runtime) []health.Checker {
					return []health.Checker{health.NewProbeChecker("probe", func(context.Context) error { return tt.probe })}
				},
			}
			out, err := execute(t, opts, "healthcheck")
			if (err != nil) != tt.wantErr {
				t.Fatalf("healthcheck error = %v, wantErr %v", err, tt.wantErr)
			}
			var result health.AggregatedResult
			if err := json.Unmarshal([]byte(out), &result); err != nil {
				t.Fatalf("healthcheck output is not json: %v\n%s", err, out)
			}
			if result.Status != tt.wantState {
				t.Fatalf("status = %s, want %s", result.Status, tt.wantState)
			}
			if len(result.Checks) != 2 {
				t.Fatalf("checks = %d, want 2", len(result.Checks))
			}
		})
	}
}

func TestAdapterFactoryError(t *testing.T) {
	opts := Options{AdapterFactory: func(config.StoreConfig, logger.Logger) (store.Adapter, error) {
		return nil, errors.New("unreachable")
	}}
	_, err := execute(t, opts, "healthcheck")
	if err == nil || !strings.Contains(err.Error(), "open document store") {
		t.Fatalf("error = %v, want open document store failure", err)
	}
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	secretPath := filepath.Join(dir, "creds.yaml")
	writeTestFile(t, cfgPath, "store:\n  type: postgres\n")
	writeTestFile(t, secretPath, "store:\n  postgres:\n    url: postgres://app:hunter2@db/people\n")
	t.Cleanup(func() { _ = os.Unsetenv(testPrefix + "_SECRETS_FILE") })

	out, err := execute(t, Options{}, "config", "show", "-c", cfgPath, "--secret-file", secretPath)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("config show leaks the secret:\n%s", out)
	}
	if !strings.Contains(out, "url: ***") || !strings.Contains(out, "type: postgres") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestSecretFileFlag_Missing(t *testing.T) {
	_, err := execute(t, Options{}, "config", "show", "--secret-file", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not accessible") {
		t.Fatalf("error = %v, want inaccessible secret file", err)
	}
}

func TestMetricsFile(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "documentdb.prom")
	opts := Options{Commands: []func(app *App) *cobra.Command{noteCommand}}
	t.Setenv(testPrefix+"_STORE_CIRCUIT_MAX_FAILURES", "3")

	if _, err := execute(t, opts, "note", "--metrics-file", metricsPath); err != nil {
		t.Fatalf("note error = %v", err)
	}
	raw, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	want := `documentdb_operations_total{operation="create",status="ok"} 1`
	if !strings.Contains(string(raw), want) {
		t.Fatalf("metrics file missing %q:\n%s", want, raw)
	}
}

func TestMetricsFile_RejectsTraversal(t *testing.T) {
	if _, err := execute(t, Options{}, "healthcheck", "--metrics-file", "../escape.prom"); err == nil {
		t.Fatal("expected metrics file path to be rejected")
	}
}

func TestEnsureContainer(t *testing.T) {
	if _, err := execute(t, Options{}, "ensure-container"); err != nil {
		t.Fatalf("ensure-container error = %v", err)
	}
}

func TestExitCode(t *testing.T) {
	derr := &document.DocumentError{Op: document.OpAdd, Err: document.ErrDocumentAlreadyExists}
	if got := exitCode(fmt.Errorf("wrapped: %w", derr)); got != 2 {
		t.Fatalf("exitCode(DocumentError) = %d, want 2", got)
	}
	if got := exitCode(errors.New("other")); got != 1 {
		t.Fatalf("exitCode(other) = %d, want 1", got)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
