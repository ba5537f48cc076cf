package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/nimburion/documentdb/pkg/observability/logger"
)

// ErrClosed is returned by operations on a closed adapter.
var ErrClosed = errors.New("postgres adapter is closed")

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// Adapter provides PostgreSQL database connectivity with connection pooling
type Adapter struct {
	db     *sql.DB
	logger logger.Logger
	config Config
	mu     sync.RWMutex
	closed bool
}

// Config holds PostgreSQL connection configuration
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// NewAdapter opens a pooled connection to PostgreSQL and verifies it with a ping.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("PostgreSQL connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
		"conn_max_lifetime", cfg.ConnMaxLifetime,
		"conn_max_idle_time", cfg.ConnMaxIdleTime,
	)

	return NewAdapterFromDB(db, cfg, log), nil
}

// NewAdapterFromDB wraps an already opened pool without pinging it.
func NewAdapterFromDB(db *sql.DB, cfg Config, log logger.Logger) *Adapter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{db: db, logger: log, config: cfg}
}

// DB returns the underlying *sql.DB for direct access when needed
func (a *Adapter) DB() *sql.DB {
	return a.db
}

func (a *Adapter) isClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

// Ping verifies the database connection is alive
func (a *Adapter) Ping(ctx context.Context) error {
	if a.isClosed() {
		return ErrClosed
	}
	return a.db.PingContext(ctx)
}

// HealthCheck verifies the database connection is healthy with a timeout
func (a *Adapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := a.Ping(ctx); err != nil {
		a.logger.Error("PostgreSQL health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close gracefully closes the database connection
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close PostgreSQL connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	a.logger.Info("PostgreSQL connection closed successfully")
	return nil
}

// Cosa fa: crea la tabella documentale (partition_key, id, body JSONB) se non esiste.
// Cosa NON fa: non crea indici sui campi del body.
// Esempio minimo: err := adapter.EnsureDocumentTable(ctx, "people")
func (a *Adapter) EnsureDocumentTable(ctx context.Context, table string) error {
	if a.isClosed() {
		return ErrClosed
	}
	queryCtx, cancel := a.withQueryTimeout(ctx)
	defer cancel()

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	partition_key TEXT COLLATE "C" NOT NULL,
	id TEXT COLLATE "C" NOT NULL,
	body JSONB NOT NULL,
	PRIMARY KEY (partition_key, id)
)`, pq.QuoteIdentifier(table))
	if _, err := a.db.ExecContext(queryCtx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// Conn reserves one pooled connection. Callers must Close it.
func (a *Adapter) Conn(ctx context.Context) (*Conn, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Conn{conn: conn, adapter: a}, nil
}

// Conn is a single reserved connection whose statements honor the query timeout.
type Conn struct {
	conn    *sql.Conn
	adapter *Adapter
}

// Exec runs a statement and returns the number of affected rows.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	queryCtx, cancel := c.adapter.withQueryTimeout(ctx)
	defer cancel()
	res, err := c.conn.ExecContext(queryCtx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// QueryRow scans the first row into dest; sql.ErrNoRows when there is none.
func (c *Conn) QueryRow(ctx context.Context, query string, args []any, dest ...any) error {
	queryCtx, cancel := c.adapter.withQueryTimeout(ctx)
	defer cancel()
	return c.conn.QueryRowContext(queryCtx, query, args...).Scan(dest...)
}

// Query calls each for every row. Rows are consumed before the timeout is released.
func (c *Conn) Query(ctx context.Context, query string, args []any, each func(*sql.Rows) error) error {
	queryCtx, cancel := c.adapter.withQueryTimeout(ctx)
	defer cancel()
	rows, err := c.conn.QueryContext(queryCtx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (a *Adapter) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.config.QueryTimeout)
}
