package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Drivers the engine is used with: postgres for live verification
	// targets, sqlite for local fixtures and tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/attest/internal/verdict"
)

// DefaultQueryTimeout bounds each query issued through the Reader.
const DefaultQueryTimeout = 60 * time.Second

// Reader wraps a database handle for read-only verification queries.
//
// Each verification run opens its own Reader and closes it on exit; no
// state is shared between runs.
type Reader struct {
	db      *sql.DB
	timeout time.Duration
}

// Open connects to a relational store. driver is a registered database/sql
// driver name ("pgx", "sqlite3"); dsn is the opaque connection string
// supplied by the outer configuration layer.
//
// The connection is verified with a ping so that an unreachable store
// surfaces as ConnectionFailed here, not as a confusing failure on the
// first query.
func Open(ctx context.Context, driver, dsn string) (*Reader, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, verdict.NewConnectionFailed(fmt.Errorf("open %s: %w", driver, err))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, verdict.NewConnectionFailed(fmt.Errorf("ping %s: %w", driver, err))
	}
	return &Reader{db: db, timeout: DefaultQueryTimeout}, nil
}

// NewReader wraps an existing handle. Used by tests and by callers that
// manage the pool themselves.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db, timeout: DefaultQueryTimeout}
}

// SetQueryTimeout overrides the per-query deadline.
func (r *Reader) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// Close releases the underlying handle.
func (r *Reader) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Query executes a parameterized read query, fetches every row, and
// returns the result decorated with its column schema.
//
// Errors are classified: an expired deadline is Timeout, everything else
// surfaced by the driver during execution is QueryFailed - by the time a
// query runs, the connection was already verified, so a failure here means
// the request itself is malformed or the store rejected it.
func (r *Reader) Query(ctx context.Context, query string, args ...any) (RowSet, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(callCtx, query, args...)
	if err != nil {
		return RowSet{}, classifyQueryError(query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return RowSet{}, verdict.NewQueryFailed(query, fmt.Errorf("columns: %w", err))
	}

	rs := RowSet{Columns: Schema(columns), Rows: []Row{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return RowSet{}, verdict.NewQueryFailed(query, fmt.Errorf("scan: %w", err))
		}
		// Drivers hand back []byte for text columns; keep row values
		// scalar so comparison never aliases driver buffers.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, Row(values))
	}
	if err := rows.Err(); err != nil {
		return RowSet{}, classifyQueryError(query, err)
	}

	return rs, nil
}

func classifyQueryError(query string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return verdict.NewTimeout(query, err)
	}
	return verdict.NewQueryFailed(query, err)
}
