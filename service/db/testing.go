package db

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestStore wraps a Store with test cleanup functionality.
type TestStore struct {
	*Store
	pool *pgxpool.Pool
}

// NewTestStore creates a new Store connected to the test database named by
// TEST_DATABASE_URL and applies the schema. The test is skipped when the
// variable is unset or the database cannot be reached.
func NewTestStore(t *testing.T) *TestStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping database test (TEST_DATABASE_URL is not set)")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping database test: %v", err)
	}

	ts := &TestStore{
		Store: NewStore(pool, nil),
		pool:  pool,
	}
	if err := ts.Migrate(ctx); err != nil {
		pool.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}
	ts.Cleanup(t)
	t.Cleanup(ts.Close)
	return ts
}

// Close closes the database connection pool.
func (ts *TestStore) Close() {
	ts.pool.Close()
}

// Cleanup removes all rows from the transfers table.
func (ts *TestStore) Cleanup(t *testing.T) {
	t.Helper()

	_, err := ts.pool.Exec(context.Background(), "TRUNCATE TABLE transfers")
	if err != nil {
		t.Fatalf("failed to cleanup test database: %v", err)
	}
}

// MustExec executes a SQL statement and fails the test if it errors.
func (ts *TestStore) MustExec(t *testing.T, query string, args ...any) {
	t.Helper()

	_, err := ts.pool.Exec(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("failed to execute query: %v\nQuery: %s", err, query)
	}
}
