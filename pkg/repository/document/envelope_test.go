package document

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestEmptyResponse(t *testing.T) {
	r := EmptyResponse[personDocument, person]()
	if r.StatusCode() != http.StatusNotAcceptable {
		t.Fatalf("StatusCode() = %d, want 406", r.StatusCode())
	}
	if r.RequestCharge() != 0 || r.Found() || len(r.Entities()) != 0 {
		t.Fatal("empty response must carry no charge and no entities")
	}
	if _, ok := r.First(); ok {
		t.Fatal("First() on an empty response must report false")
	}
}

func TestNewResponse_CopiesDocuments(t *testing.T) {
	docs := carreros()
	r, err := NewResponse[personDocument, person](200, 2.5, docs, MustFieldMapper[personDocument, person]())
	if err != nil {
		t.Fatalf("NewResponse() error = %v", err)
	}
	docs[0].FirstName = "Changed"
	if d, _ := r.FirstDocument(); d.FirstName != "Carlos" {
		t.Fatal("response must not alias the caller's slice")
	}
	out := r.Entities()
	out[0].FirstName = "Changed"
	if e, _ := r.First(); e.FirstName != "Carlos" {
		t.Fatal("Entities() must return a copy")
	}
	if r.RequestCharge() != 2.5 {
		t.Fatalf("RequestCharge() = %v", r.RequestCharge())
	}
}

func TestNewResponse_MapperError(t *testing.T) {
	failing := MapperFunc[personDocument, person](func(personDocument) (person, error) {
		return person{}, errors.New("bad document")
	})
	if _, err := NewResponse[personDocument, person](200, 0, carreros(), failing); err == nil {
		t.Fatal("expected mapper error")
	}
}

func TestFieldMapper(t *testing.T) {
	type view struct {
		Key      string `map:"ID"`
		Surname  string `map:"FamilyName"`
		Initials string
		Skipped  string `map:"-"`
		Unknown  int
	}

	m, err := NewFieldMapper[personDocument, view]()
	if err != nil {
		t.Fatalf("NewFieldMapper() error = %v", err)
	}
	m.ForMember("Initials", func(d personDocument) any {
		return d.FirstName[:1] + d.FamilyName[:1]
	})

	got, err := m.Map(carreros()[0])
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	want := view{Key: "1", Surname: "Carrero", Initials: "CC"}
	if got != want {
		t.Fatalf("Map() = %+v, want %+v", got, want)
	}
}

func TestFieldMapper_Incompatible(t *testing.T) {
	type bad struct {
		FirstName int
	}
	if _, err := NewFieldMapper[personDocument, bad](); err == nil {
		t.Fatal("expected error for incompatible field types")
	}
	if _, err := NewFieldMapper[personDocument, string](); err == nil {
		t.Fatal("expected error for non-struct destination")
	}

	type view struct{ FirstName string }
	m := MustFieldMapper[personDocument, view]().ForMember("FirstName", func(personDocument) any { return 3.5 })
	if _, err := m.Map(carreros()[0]); err == nil || !strings.Contains(err.Error(), "FirstName") {
		t.Fatalf("Map() error = %v, want member error", err)
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name       string
		p          Pagination
		wantOffset int
		wantLimit  int
	}{
		{"defaults", Pagination{}, 0, DefaultPageSize},
		{"first page", Pagination{Page: 1, PageSize: 10}, 0, 10},
		{"third page", Pagination{Page: 3, PageSize: 10}, 20, 10},
		{"negative page", Pagination{Page: -2, PageSize: 5}, 0, 5},
		{"token ignores page", Pagination{Page: 3, PageSize: 10, ContinuationToken: "t"}, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p.Normalize()
			if p.Offset() != tt.wantOffset || p.Limit() != tt.wantLimit {
				t.Fatalf("Offset/Limit = %d/%d, want %d/%d", p.Offset(), p.Limit(), tt.wantOffset, tt.wantLimit)
			}
		})
	}

	p := NewPagination(WithPage(2), WithPageSize(25), WithContinuationToken(""))
	if p.Offset() != 25 {
		t.Fatalf("NewPagination offset = %d, want 25", p.Offset())
	}
}

func TestContinuationToken(t *testing.T) {
	pos := Position{PartitionKey: "Carrero", ID: "2"}
	token := EncodeContinuationToken(pos)

	got, err := DecodeContinuationToken(token, "Carrero")
	if err != nil || got != pos {
		t.Fatalf("DecodeContinuationToken() = %+v, %v", got, err)
	}
	if _, err := DecodeContinuationToken(token, ""); err != nil {
		t.Fatalf("cross-partition decode error = %v", err)
	}

	for _, bad := range []string{"%%%", "bm90LWpzb24", EncodeContinuationToken(Position{PartitionKey: "Carrero"})} {
		if _, err := DecodeContinuationToken(bad, ""); !errors.Is(err, ErrInvalidContinuationToken) {
			t.Fatalf("DecodeContinuationToken(%q) error = %v", bad, err)
		}
	}
	if _, err := DecodeContinuationToken(token, "Johnson"); !errors.Is(err, ErrInvalidContinuationToken) {
		t.Fatal("expected foreign partition token to be rejected")
	}
	if p, err := DecodeContinuationToken("", "x"); err != nil || !p.IsZero() {
		t.Fatal("empty token must decode to the start position")
	}
}
