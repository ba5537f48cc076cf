package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/nimburion/documentdb/pkg/specification"
	pgstore "github.com/nimburion/documentdb/pkg/store/postgres"
)

// PostgresConnector serves a table of JSONB documents keyed by (partition_key, id).
// PostgreSQL reports no request units, so charges are always 0.
type PostgresConnector[D Document] struct {
	adapter *pgstore.Adapter
	table   string
}

// Cosa fa: collega un repository a una tabella PostgreSQL con body JSONB.
// Cosa NON fa: non crea la tabella; usare adapter.EnsureDocumentTable.
// Esempio minimo: conn, err := document.NewPostgresConnector[Person](adapter, "people")
func NewPostgresConnector[D Document](adapter *pgstore.Adapter, table string) (*PostgresConnector[D], error) {
	if adapter == nil {
		return nil, errors.New("postgres adapter is required")
	}
	if table == "" {
		return nil, errors.New("table name is required")
	}
	return &PostgresConnector[D]{adapter: adapter, table: pq.QuoteIdentifier(table)}, nil
}

// Open implements Connector by reserving one pooled connection.
func (c *PostgresConnector[D]) Open(ctx context.Context) (Conn[D], error) {
	conn, err := c.adapter.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &pgConn[D]{connector: c, conn: conn}, nil
}

type pgConn[D Document] struct {
	connector *PostgresConnector[D]
	conn      *pgstore.Conn
}

func (p *pgConn[D]) Read(ctx context.Context, key Key) (Result[D], error) {
	var body []byte
	query := "SELECT body FROM " + p.connector.table + " WHERE partition_key = $1 AND id = $2"
	err := p.conn.QueryRow(ctx, query, []any{key.PartitionKey, key.ID}, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Result[D]{StatusCode: http.StatusNotFound}, fmt.Errorf("%w: %w", ErrStoreNotFound, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	doc, err := decodeJSON[D](body)
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusOK, Documents: []D{doc}}, nil
}

func (p *pgConn[D]) Create(ctx context.Context, doc D) (Result[D], error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return Result[D]{}, fmt.Errorf("failed to encode document: %w", err)
	}
	query := "INSERT INTO " + p.connector.table + " (partition_key, id, body) VALUES ($1, $2, $3::jsonb)"
	_, err = p.conn.Exec(ctx, query, doc.PartitionKey(), doc.DocumentID(), string(body))
	if pgstore.IsUniqueViolation(err) {
		return Result[D]{}, fmt.Errorf("%w: %w", ErrStoreConflict, err)
	}
	if err != nil {
		return Result[D]{}, err
	}
	return Result[D]{StatusCode: http.StatusCreated, Documents: []D{doc}}, nil
}

func (p *pgConn[D]) Replace(ctx context.Context, doc D) (Result[D], error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return Result[D]{}, fmt.Errorf("failed to encode document: %w", err)
	}
	query := "UPDATE " + p.connector.table + " SET body = $3::jsonb WHERE partition_key = $1 AND id = $2"
	affected, err := p.conn.Exec(ctx, query, doc.PartitionKey(), doc.DocumentID(), string(body))
	if err != nil {
		return Result[D]{}, err
	}
	if affected == 0 {
		return Result[D]{}, ErrStoreNotFound
	}
	return Result[D]{StatusCode: http.StatusOK, Documents: []D{doc}}, nil
}

func (p *pgConn[D]) Delete(ctx context.Context, key Key) (Result[D], error) {
	query := "DELETE FROM " + p.connector.table + " WHERE partition_key = $1 AND id = $2"
	affected, err := p.conn.Exec(ctx, query, key.PartitionKey, key.ID)
	if err != nil {
		return Result[D]{}, err
	}
	if affected == 0 {
		return Result[D]{}, ErrStoreNotFound
	}
	return Result[D]{StatusCode: http.StatusNoContent}, nil
}

func (p *pgConn[D]) Query(ctx context.Context, req QueryRequest[D]) (QueryResult[D], error) {
	expr, local := p.connector.specExpr(req.Specification)

	return scan(ctx, req, local, func(ctx context.Context, after Position, limit int) (batch[D], error) {
		query, args, err := p.connector.selectPage(req.PartitionKey, after, expr, limit)
		if err != nil {
			return batch[D]{}, err
		}

		b := batch[D]{Next: after}
		err = p.conn.Query(ctx, query, args, func(rows *sql.Rows) error {
			var body []byte
			if err := rows.Scan(&b.Next.PartitionKey, &b.Next.ID, &body); err != nil {
				return err
			}
			doc, err := decodeJSON[D](body)
			if err != nil {
				return err
			}
			b.Documents = append(b.Documents, doc)
			return nil
		})
		if err != nil {
			return batch[D]{}, err
		}
		b.Done = len(b.Documents) < limit
		return b, nil
	})
}

func (p *pgConn[D]) Close(context.Context) error {
	return p.conn.Close()
}

// specExpr returns the expression to push down, or local=true when spec must run
// in-process.
func (c *PostgresConnector[D]) specExpr(spec specification.Specification[D]) (*specification.Expr, bool) {
	expr, ok := specification.ExpressionOf(spec)
	if !ok {
		return nil, true
	}
	if _, _, err := PostgresFilter(expr, 0); err != nil {
		return nil, true
	}
	if expr.Op == specification.OpAll {
		return nil, false
	}
	return &expr, false
}

// selectPage builds the keyset query for one batch.
func (c *PostgresConnector[D]) selectPage(partitionKey string, after Position, expr *specification.Expr, limit int) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	if partitionKey != "" {
		args = append(args, partitionKey)
		where = append(where, "partition_key = $1")
	}
	if !after.IsZero() {
		args = append(args, after.PartitionKey, after.ID)
		n := len(args)
		where = append(where, fmt.Sprintf(`(partition_key COLLATE "C", id COLLATE "C") > ($%d, $%d)`, n-1, n))
	}
	if expr != nil {
		filter, filterArgs, err := PostgresFilter(*expr, len(args))
		if err != nil {
			return "", nil, err
		}
		where = append(where, filter)
		args = append(args, filterArgs...)
	}

	var sb strings.Builder
	sb.WriteString("SELECT partition_key, id, body FROM ")
	sb.WriteString(c.table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	// Keys order bytewise whatever the table's collation, as on the other backends.
	sb.WriteString(` ORDER BY partition_key COLLATE "C", id COLLATE "C" LIMIT `)
	sb.WriteString(strconv.Itoa(limit))
	return sb.String(), args, nil
}
