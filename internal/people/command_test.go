package people

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nimburion/documentdb/pkg/cli"
	"github.com/nimburion/documentdb/pkg/config"
	"github.com/nimburion/documentdb/pkg/observability/logger"
	"github.com/nimburion/documentdb/pkg/repository/document"
	"github.com/nimburion/documentdb/pkg/store"
	"github.com/nimburion/documentdb/pkg/store/memory"
)

// seededAdapters hands every command a fresh memory store holding docs.
func seededAdapters(t *testing.T, docs ...Document) cli.AdapterFactory {
	return func(cfg config.StoreConfig, log logger.Logger) (store.Adapter, error) {
		adapter := memory.NewAdapter(log)
		connector, err := document.NewMemoryConnector[Document](adapter, cfg.Container)
		if err != nil {
			return nil, err
		}
		repo, err := NewRepository(connector, log)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if _, err := repo.Add(context.Background(), d); err != nil {
				return nil, err
			}
		}
		return adapter, nil
	}
}

func runPeople(t *testing.T, factory cli.AdapterFactory, args ...string) (Result, error) {
	t.Helper()
	t.Setenv("PEOPLETEST_LOG_LEVEL", "error")
	root := cli.NewRootCommand(cli.Options{
		Name:           "peopletest",
		EnvPrefix:      "PEOPLETEST",
		AdapterFactory: factory,
		HealthChecks:   HealthChecks,
		Commands:       Commands(),
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"people"}, args...))
	if err := root.ExecuteContext(context.Background()); err != nil {
		return Result{}, err
	}
	var res Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not a result: %v\n%s", err, out.String())
	}
	return res, nil
}

func TestGetCommand(t *testing.T) {
	factory := seededAdapters(t, carreros()...)

	res, err := runPeople(t, factory, "get", "--family-name", "Carrero", "--id", "1")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	if res.StatusCode != 200 || len(res.People) != 1 || res.People[0].FirstName != "Carlos" {
		t.Fatalf("get result = %+v", res)
	}

	_, err = runPeople(t, factory, "get", "--family-name", "Carrero", "--id", "404")
	if !errors.Is(err, document.ErrDocumentNotFound) {
		t.Fatalf("get missing error = %v, want ErrDocumentNotFound", err)
	}
}

func TestAddCommand_AssignsID(t *testing.T) {
	res, err := runPeople(t, seededAdapters(t), "add", "--first-name", "Carlos", "--family-name", "Johnson")
	if err != nil {
		t.Fatalf("add error = %v", err)
	}
	if res.StatusCode != 201 || len(res.People) != 1 {
		t.Fatalf("add result = %+v", res)
	}
	if _, err := uuid.Parse(res.People[0].ID); err != nil {
		t.Fatalf("assigned id %q is not a uuid: %v", res.People[0].ID, err)
	}
}

func TestAddCommand_Duplicate(t *testing.T) {
	_, err := runPeople(t, seededAdapters(t, carreros()...), "add", "--id", "1", "--first-name", "Carlos", "--family-name", "Carrero")
	var derr *document.DocumentError
	if !errors.As(err, &derr) || derr.Op != document.OpAdd || !document.IsAlreadyExists(err) {
		t.Fatalf("duplicate add error = %v", err)
	}
}

func TestUpdateAndDeleteCommands(t *testing.T) {
	factory := seededAdapters(t, carreros()...)

	res, err := runPeople(t, factory, "update", "--id", "2", "--first-name", "Luis", "--middle-name", "Alberto", "--family-name", "Carrero")
	if err != nil {
		t.Fatalf("update error = %v", err)
	}
	if len(res.People) != 1 || res.People[0].MiddleName != "Alberto" {
		t.Fatalf("update result = %+v", res)
	}

	if _, err := runPeople(t, factory, "update", "--id", "9", "--first-name", "Ana", "--family-name", "Carrero"); !document.IsNotFound(err) {
		t.Fatalf("update missing error = %v, want not found", err)
	}

	if _, err := runPeople(t, factory, "delete", "--id", "3", "--family-name", "Carrero"); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if _, err := runPeople(t, factory, "delete", "--id", "9", "--family-name", "Carrero"); !document.IsNotFound(err) {
		t.Fatalf("delete missing error = %v, want not found", err)
	}
}

func TestQueryCommand(t *testing.T) {
	docs := append(carreros(), Document{ID: "4", FirstName: "Carlos", FamilyName: "Johnson"})
	factory := seededAdapters(t, docs...)

	res, err := runPeople(t, factory, "query", "--first-name", "Carlos")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if len(res.People) != 2 {
		t.Fatalf("cross-partition query = %+v, want 2 people", res.People)
	}

	res, err = runPeople(t, factory, "query", "--first-name", "Carlos", "--partition", "Johnson")
	if err != nil {
		t.Fatalf("partition query error = %v", err)
	}
	if len(res.People) != 1 || res.People[0].ID != "4" {
		t.Fatalf("partition query = %+v", res.People)
	}

	first, err := runPeople(t, factory, "query", "--partition", "Carrero", "--page-size", "2")
	if err != nil {
		t.Fatalf("first page error = %v", err)
	}
	if len(first.People) != 2 || first.ContinuationToken == "" {
		t.Fatalf("first page = %+v", first)
	}
	second, err := runPeople(t, factory, "query", "--partition", "Carrero", "--page-size", "2", "--continuation", first.ContinuationToken)
	if err != nil {
		t.Fatalf("second page error = %v", err)
	}
	if len(second.People) != 1 || second.People[0].ID == first.People[0].ID || second.People[0].ID == first.People[1].ID {
		t.Fatalf("second page = %+v after %+v", second.People, first.People)
	}

	if _, err := runPeople(t, factory, "query", "--continuation", "not-a-token"); !errors.Is(err, document.ErrInvalidContinuationToken) {
		t.Fatalf("bad token error = %v, want ErrInvalidContinuationToken", err)
	}
}

func TestMatch(t *testing.T) {
	carlos := Document{ID: "1", FirstName: "Carlos", FamilyName: "Carrero"}
	tests := []struct {
		first, family string
		want          bool
	}{
		{"", "", true},
		{"Carlos", "", true},
		{"", "Carrero", true},
		{"Carlos", "Carrero", true},
		{"Carlos", "Johnson", false},
		{"Luis", "", false},
	}
	for _, tt := range tests {
		if got := Match(tt.first, tt.family).IsSatisfiedBy(carlos); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.first, tt.family, got, tt.want)
		}
	}
}
