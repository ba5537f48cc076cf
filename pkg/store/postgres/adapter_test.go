package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/nimburion/documentdb/pkg/observability/logger"
)

func newMockAdapter(t *testing.T, cfg Config) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAdapterFromDB(db, cfg, nil), mock
}

func TestNewAdapter_InvalidURL(t *testing.T) {
	log, _ := logger.NewZapLogger(logger.Config{
		Level:  logger.InfoLevel,
		Format: logger.JSONFormat,
	})

	if _, err := NewAdapter(Config{URL: ""}, log); err == nil {
		t.Fatal("expected error for empty URL")
	}
	if _, err := NewAdapter(Config{URL: "invalid://localhost"}, log); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestWithQueryTimeout_UsesConfigWhenNoDeadline(t *testing.T) {
	a := &Adapter{config: Config{QueryTimeout: 2 * time.Second}}

	ctx, cancel := a.withQueryTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline from query timeout")
	}
	if remaining := time.Until(deadline); remaining <= 0 || remaining > 2*time.Second {
		t.Fatalf("unexpected remaining timeout: %v", remaining)
	}
}

func TestWithQueryTimeout_PreservesCallerDeadline(t *testing.T) {
	a := &Adapter{config: Config{QueryTimeout: 2 * time.Second}}
	parentCtx, parentCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer parentCancel()

	ctx, cancel := a.withQueryTimeout(parentCtx)
	defer cancel()

	parentDeadline, _ := parentCtx.Deadline()
	gotDeadline, _ := ctx.Deadline()
	if !gotDeadline.Equal(parentDeadline) {
		t.Fatalf("expected caller deadline to be preserved, got %v want %v", gotDeadline, parentDeadline)
	}
}

func TestWithQueryTimeout_ZeroTimeout(t *testing.T) {
	a := &Adapter{config: Config{QueryTimeout: 0}}
	ctx, cancel := a.withQueryTimeout(context.Background())
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Fatal("expected no deadline when query timeout is zero")
	}
}

func TestEnsureDocumentTable(t *testing.T) {
	a, mock := newMockAdapter(t, Config{QueryTimeout: time.Second})
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "people"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := a.EnsureDocumentTable(context.Background(), "people"); err != nil {
		t.Fatalf("EnsureDocumentTable() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConn_Statements(t *testing.T) {
	a, mock := newMockAdapter(t, Config{QueryTimeout: time.Second})
	ctx := context.Background()

	mock.ExpectExec("UPDATE docs").WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT body").WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`{"id":"1"}`))
	mock.ExpectQuery("SELECT id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("1").AddRow("2"))
	mock.ExpectQuery("SELECT missing").WillReturnError(sql.ErrNoRows)

	conn, err := a.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	defer conn.Close()

	affected, err := conn.Exec(ctx, "UPDATE docs SET x = 1 WHERE k = $1", "a")
	if err != nil || affected != 2 {
		t.Fatalf("Exec() = %d, %v", affected, err)
	}

	var body string
	if err := conn.QueryRow(ctx, "SELECT body FROM docs WHERE k = $1", []any{"a"}, &body); err != nil || body != `{"id":"1"}` {
		t.Fatalf("QueryRow() = %q, %v", body, err)
	}

	var got []string
	err = conn.Query(ctx, "SELECT id FROM docs", nil, func(rows *sql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		got = append(got, id)
		return nil
	})
	if err != nil || len(got) != 2 {
		t.Fatalf("Query() = %v, %v", got, err)
	}

	var none string
	if err := conn.QueryRow(ctx, "SELECT missing FROM docs", nil, &none); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("QueryRow() error = %v, want sql.ErrNoRows", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdapter_Closed(t *testing.T) {
	a, mock := newMockAdapter(t, Config{})
	mock.ExpectClose()

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := a.Conn(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Conn() after close error = %v", err)
	}
	if err := a.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Ping() after close error = %v", err)
	}
	if err := a.EnsureDocumentTable(context.Background(), "people"); !errors.Is(err, ErrClosed) {
		t.Fatalf("EnsureDocumentTable() after close error = %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Fatal("expected 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) || IsUniqueViolation(nil) {
		t.Fatal("plain errors are not unique violations")
	}
}
