package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimburion/documentdb/pkg/resilience"
)

func TestIsStoreFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrStoreNotFound, false},
		{errors.Join(errors.New("E11000"), ErrStoreConflict), false},
		{ErrInvalidContinuationToken, false},
		{ErrUnsupportedExpression, false},
		{context.DeadlineExceeded, true},
		{errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		if got := IsStoreFailure(tt.err); got != tt.want {
			t.Errorf("IsStoreFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestGuard_MissingDocumentsDoNotTrip(t *testing.T) {
	f := newFixture(t, carreros()...)
	breaker := NewStoreBreaker(1, time.Minute)
	repo, err := New[personDocument, person](Guard[personDocument](f.connector, breaker), MustFieldMapper[personDocument, person]())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		resp, err := repo.GetByID(context.Background(), "Carrero", "missing")
		if err != nil || resp.Found() {
			t.Fatalf("GetByID() = %v, %v", resp, err)
		}
	}
	if _, err := repo.Add(context.Background(), carreros()[0]); !IsAlreadyExists(err) {
		t.Fatalf("duplicate Add() error = %v", err)
	}
	if breaker.State() != resilience.StateClosed {
		t.Fatalf("breaker state = %v, want closed", breaker.State())
	}
}

func TestGuard_OpensOnStoreFailures(t *testing.T) {
	opens := 0
	down := ConnectorFunc[personDocument](func(context.Context) (Conn[personDocument], error) {
		opens++
		return nil, errors.New("connection refused")
	})
	repo, err := New[personDocument, person](Guard[personDocument](down, NewStoreBreaker(2, time.Minute)), MustFieldMapper[personDocument, person]())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(ctx, "Carrero", "1"); err == nil || errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("call %d error = %v, want the store error", i, err)
		}
	}
	_, err = repo.GetBySpecification(ctx, firstName("Carlos"), "Carrero")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if opens != 2 {
		t.Fatalf("store opened %d times, want 2", opens)
	}
}
