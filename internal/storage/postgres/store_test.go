package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"

	"jamesfarrell.me/video-search/internal/index"
)

// stubConnector backs a *sql.DB with canned responses so the store's SQL
// paths can be exercised without a running Postgres.
type stubConnector struct {
	conn *stubConn
}

func (c *stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c *stubConnector) Driver() driver.Driver                        { return nil }

type stubConn struct {
	countErr  error
	count     int64
	searchErr error
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return nil, errors.New("begin not supported") }

func (c *stubConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}

func (c *stubConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if strings.Contains(query, "COUNT(*)") {
		if c.countErr != nil {
			return nil, c.countErr
		}
		return &singleRow{columns: []string{"count"}, values: []driver.Value{c.count}}, nil
	}
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return &singleRow{columns: []string{"id"}, done: true}, nil
}

// singleRow yields at most one row of values.
type singleRow struct {
	columns []string
	values  []driver.Value
	done    bool
}

func (r *singleRow) Columns() []string { return r.columns }
func (r *singleRow) Close() error      { return nil }

func (r *singleRow) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	copy(dest, r.values)
	r.done = true
	return nil
}

func newStubStore(t *testing.T, conn *stubConn) *Store {
	t.Helper()
	db := sql.OpenDB(&stubConnector{conn: conn})
	t.Cleanup(func() { db.Close() })
	store, err := NewStore(db, 3)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestSearchPropagatesCountError(t *testing.T) {
	dbErr := errors.New("connection refused")
	store := newStubStore(t, &stubConn{countErr: dbErr})

	_, err := store.Search([]float32{1, 0, 0}, 5)
	if err == nil {
		t.Fatal("Search() with failing database succeeded")
	}
	if errors.Is(err, index.ErrEmptyIndex) {
		t.Fatal("Search() reported an empty index for a database failure")
	}
	if !errors.Is(err, dbErr) {
		t.Errorf("Search() error = %v, want wrapped %v", err, dbErr)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	store := newStubStore(t, &stubConn{count: 0})

	_, err := store.Search([]float32{1, 0, 0}, 5)
	if !errors.Is(err, index.ErrEmptyIndex) {
		t.Fatalf("Search() error = %v, want ErrEmptyIndex", err)
	}
}

func TestSearchPropagatesQueryError(t *testing.T) {
	dbErr := errors.New("server closed the connection")
	store := newStubStore(t, &stubConn{count: 3, searchErr: dbErr})

	_, err := store.Search([]float32{1, 0, 0}, 5)
	if err == nil {
		t.Fatal("Search() with failing query succeeded")
	}
	if errors.Is(err, index.ErrEmptyIndex) {
		t.Fatal("Search() reported an empty index for a query failure")
	}
}
