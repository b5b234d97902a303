package testdb

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"school-service/internal/schema"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const image = "postgres:16-alpine"

var (
	shared     *PostgresContainer
	sharedOnce sync.Once
	sharedErr  error
)

// AllTables lists every table of the schema in truncation-safe order.
var AllTables = []string{
	"attendance_records",
	"test_records",
	"fee_payments",
	"expenses",
	"students",
	"guardians",
}

type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string

	migrateOnce sync.Once
	migrateErr  error
}

// SetupSharedPostgres starts one PostgreSQL container per test binary.
// Tests that use it must not call t.Parallel.
//
// Usage:
//
//	func TestMyRepo(t *testing.T) {
//	    pg := testdb.SetupSharedPostgres(t)
//	    pg.Migrate(t)
//
//	    t.Run("Case", func(t *testing.T) {
//	        testdb.CleanupTables(t, pg.DB, testdb.AllTables...)
//	    })
//	}
func SetupSharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	sharedOnce.Do(func() {
		shared, sharedErr = startPostgres(context.Background())
	})
	require.NoError(t, sharedErr, "postgres container failed to start")
	return shared
}

func startPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		image,
		postgres.WithDatabase("school_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &PostgresContainer{Container: container, DB: db, DSN: dsn}, nil
}

// Migrate creates the full schema with the same code path the service uses.
// Only the first call per test binary does any work.
func (pc *PostgresContainer) Migrate(t *testing.T) {
	t.Helper()
	pc.migrateOnce.Do(func() {
		pc.migrateErr = schema.Migrate(context.Background(), pc.DB)
	})
	require.NoError(t, pc.migrateErr, "failed to run migrations")
}

// CleanupTables empties tables in a single statement, resetting their
// sequences so ids are predictable within a test.
func CleanupTables(t *testing.T, db *bun.DB, tables ...string) {
	t.Helper()
	if len(tables) == 0 {
		return
	}

	_, err := db.ExecContext(context.Background(),
		"TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err, "failed to truncate %v", tables)
}
