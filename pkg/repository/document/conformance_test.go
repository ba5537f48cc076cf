package document

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/nimburion/documentdb/pkg/specification"
)

// mixedPeople spans two partitions and includes documents whose omitempty
// fields are left out of the stored body.
func mixedPeople() []personDocument {
	return []personDocument{
		{ID: "1", FirstName: "Carlos", MiddleName: "Andres", FamilyName: "Carrero"},
		{ID: "2", FirstName: "Luis", MiddleName: "Miguel", FamilyName: "Carrero"},
		{ID: "4", FirstName: "Elena", FamilyName: "Carrero"},
		{ID: "5", FirstName: "Ana", MiddleName: "Sofia", FamilyName: "Ruiz"},
		{ID: "6", FirstName: "Luz", FamilyName: "Ruiz"},
	}
}

// translatableSpecs covers every operator the store translators push down.
func translatableSpecs() []struct {
	name string
	expr specification.Expr
} {
	return []struct {
		name string
		expr specification.Expr
	}{
		{"ne", specification.Ne("firstName", "Luis")},
		{"in", specification.In("firstName", "Carlos", "Ana", "Nobody")},
		{"exists omitted field", specification.Exists("middleName")},
		{"not exists omitted field", specification.NotExpr(specification.Exists("middleName"))},
		{"eq empty omitted field", specification.Eq("middleName", "")},
		{"ne empty omitted field", specification.Ne("middleName", "")},
		{"gt", specification.Gt("firstName", "Carlos")},
		{"lte", specification.Lte("firstName", "Elena")},
		{"prefix", specification.HasPrefix("firstName", "Lu")},
		{"not prefix", specification.NotExpr(specification.HasPrefix("firstName", "C"))},
		{"contains", specification.Contains("middleName", "i")},
		{"or", specification.OrExpr(specification.Eq("firstName", "Carlos"), specification.NotExpr(specification.Exists("middleName")))},
		{"and", specification.AndExpr(specification.Exists("middleName"), specification.Ne("familyName", "Ruiz"))},
	}
}

// matchingIDs runs spec over every page of partitionKey and returns the sorted ids.
func matchingIDs(t *testing.T, repo *GenericRepository[personDocument, person], spec specification.Spec[personDocument], partitionKey string) []string {
	t.Helper()
	var out []string
	token := ""
	for i := 0; i < 20; i++ {
		page, err := repo.GetPaginatedBySpecification(context.Background(), spec, partitionKey,
			NewPagination(WithPageSize(2), WithContinuationToken(token)))
		if err != nil {
			t.Fatalf("GetPaginatedBySpecification() error = %v", err)
		}
		out = append(out, ids(page.Documents())...)
		if !page.HasMore() {
			break
		}
		token = page.ContinuationToken
	}
	sort.Strings(out)
	return out
}

// storedMatches evaluates expr against the json bodies a store would hold for docs.
func storedMatches(t *testing.T, docs []personDocument, expr specification.Expr, partitionKey string) []string {
	t.Helper()
	match := specification.Compile[map[string]any](expr, nil)
	var out []string
	for _, d := range docs {
		if partitionKey != "" && d.PartitionKey() != partitionKey {
			continue
		}
		raw, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if match(body) {
			out = append(out, d.ID)
		}
	}
	sort.Strings(out)
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInProcessEvaluation_MatchesStoredBodies(t *testing.T) {
	f := newFixture(t, mixedPeople()...)

	for _, tt := range translatableSpecs() {
		for _, pk := range []string{"", "Carrero"} {
			t.Run(tt.name+"/"+pk, func(t *testing.T) {
				spec := specification.Where[personDocument](tt.expr)
				got := matchingIDs(t, f.repo, spec, pk)
				want := storedMatches(t, mixedPeople(), tt.expr, pk)
				if !equalIDs(got, want) {
					t.Fatalf("%s over %q = %v, stored bodies match %v", tt.expr, pk, got, want)
				}
			})
		}
	}
}

func TestInProcessEvaluation_OmittedField(t *testing.T) {
	f := newFixture(t, mixedPeople()...)

	missing := specification.Where[personDocument](specification.Exists("middleName")).Not()
	if got := matchingIDs(t, f.repo, missing, ""); !equalIDs(got, []string{"4", "6"}) {
		t.Fatalf("documents without a middle name = %v, want [4 6]", got)
	}
	for _, d := range mixedPeople() {
		if got, want := missing.IsSatisfiedBy(d), d.MiddleName == ""; got != want {
			t.Fatalf("IsSatisfiedBy(%s) = %v, want %v", d.ID, got, want)
		}
	}
}

// agreesWithMemory checks that repo returns what the memory connector returns for
// every translatable specification. The store behind repo must hold mixedPeople.
func agreesWithMemory(t *testing.T, repo *GenericRepository[personDocument, person]) {
	t.Helper()
	reference := newFixture(t, mixedPeople()...)

	for _, tt := range translatableSpecs() {
		for _, pk := range []string{"", "Carrero"} {
			t.Run(tt.name+"/"+pk, func(t *testing.T) {
				spec := specification.Where[personDocument](tt.expr)
				got := matchingIDs(t, repo, spec, pk)
				want := matchingIDs(t, reference.repo, spec, pk)
				if !equalIDs(got, want) {
					t.Fatalf("%s over %q = %v, memory store returns %v", tt.expr, pk, got, want)
				}
			})
		}
	}
}
