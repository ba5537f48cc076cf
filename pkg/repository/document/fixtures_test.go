package document

import (
	"context"
	"testing"

	"github.com/nimburion/documentdb/pkg/specification"
	"github.com/nimburion/documentdb/pkg/store/memory"
)

type personDocument struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	FamilyName string `json:"familyName"`
}

func (d personDocument) DocumentID() string   { return d.ID }
func (d personDocument) PartitionKey() string { return d.FamilyName }

type person struct {
	ID         string
	FirstName  string
	MiddleName string
	FamilyName string
}

func carreros() []personDocument {
	return []personDocument{
		{ID: "1", FirstName: "Carlos", MiddleName: "Andres", FamilyName: "Carrero"},
		{ID: "2", FirstName: "Luis", MiddleName: "Miguel", FamilyName: "Carrero"},
		{ID: "3", FirstName: "Beatriz", MiddleName: "Elena", FamilyName: "Carrero"},
	}
}

func familyName(name string) specification.Spec[personDocument] {
	return specification.Where[personDocument](specification.Eq("familyName", name))
}

func firstName(name string) specification.Spec[personDocument] {
	return specification.Where[personDocument](specification.Eq("firstName", name))
}

type fixture struct {
	adapter   *memory.Adapter
	connector *MemoryConnector[personDocument]
	repo      *GenericRepository[personDocument, person]
}

func newFixture(t *testing.T, docs ...personDocument) *fixture {
	t.Helper()
	adapter := memory.NewAdapter(nil)
	connector, err := NewMemoryConnector[personDocument](adapter, "people")
	if err != nil {
		t.Fatalf("NewMemoryConnector() error = %v", err)
	}
	mapper, err := NewFieldMapper[personDocument, person]()
	if err != nil {
		t.Fatalf("NewFieldMapper() error = %v", err)
	}
	repo, err := New[personDocument, person](connector, mapper, WithContainer("people"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, d := range docs {
		if _, err := repo.Add(context.Background(), d); err != nil {
			t.Fatalf("seed Add(%s) error = %v", d.ID, err)
		}
	}
	t.Cleanup(func() {
		if open := connector.OpenConnections(); open != 0 {
			t.Errorf("%d store connections left open", open)
		}
		_ = adapter.Close()
	})
	return &fixture{adapter: adapter, connector: connector, repo: repo}
}

func ids[D Document](docs []D) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.DocumentID())
	}
	return out
}
