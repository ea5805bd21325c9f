// Package postgresql talks to the scheduler's metadata database. dagsync only
// reads the dag registration state and import errors and flips the paused flag;
// everything else in that database is owned by the scheduler.
package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"go.uber.org/zap"
)

// PgxIface is the subset of pgxpool.Pool used by the connection. Kept as an
// interface so tests can swap in pgxmock.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type Connection struct {
	Db PgxIface
}

// SchedulerDag is the scheduler's live registration record for one dag.
type SchedulerDag struct {
	DagID  string
	Paused bool
}

// NewConnection connects to the scheduler metadata database using the
// POSTGRES_* environment variables and verifies the tables dagsync relies on.
func NewConnection() *Connection {
	zap.S().Debugf("Setting up postgresql")
	PQHost, err := env.GetAsString("POSTGRES_HOST", false, "db")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_HOST from env: %s", err)
	}
	PQPort, err := env.GetAsInt("POSTGRES_PORT", false, 5432)
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_PORT from env: %s", err)
	}
	PQUser, err := env.GetAsString("POSTGRES_USER", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_USER from env: %s", err)
	}
	PQPassword, err := env.GetAsString("POSTGRES_PASSWORD", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_PASSWORD from env: %s", err)
	}
	PQDBName, err := env.GetAsString("POSTGRES_DATABASE", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_DATABASE from env: %s", err)
	}
	PQSSLMode, err := env.GetAsString("POSTGRES_SSL_MODE", false, "require")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_SSL_MODE from env: %s", err)
	}

	zap.S().Infof("Connecting to %s@%s:%d/%s [%s]", PQUser, PQHost, PQPort, PQDBName, PQSSLMode)

	conString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", PQHost, PQPort, PQUser, PQPassword, PQDBName, PQSSLMode)

	establishContext, establishContextCncl := get5SecondContext()
	defer establishContextCncl()
	db, err := pgxpool.New(establishContext, conString)
	if err != nil {
		zap.S().Fatalf("Failed to open connection to postgres database: %s", err)
	}

	conn := &Connection{Db: db}
	if !conn.IsAvailable() {
		zap.S().Fatalf("Database is not available !")
	}

	// Validate that the scheduler tables exist
	contextCheckTables, contextCheckTablesCncl := get5SecondContext()
	defer contextCheckTablesCncl()
	tablesToCheck := []string{"dag", "import_error"}
	for _, table := range tablesToCheck {
		var tableName string
		query := `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1`
		row := db.QueryRow(contextCheckTables, query, table)
		err = row.Scan(&tableName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				zap.S().Fatalf("Table %s does not exist in the database", table)
			} else {
				zap.S().Fatalf("Failed to check for table %s: %s", table, err)
			}
		}
	}

	return conn
}

// GetDag looks up the scheduler's registration record for a dag. A dag the
// scheduler has not registered yet returns (nil, nil), not an error.
func (c *Connection) GetDag(ctx context.Context, dagID string) (*SchedulerDag, error) {
	queryCtx, cncl := context.WithTimeout(ctx, 5*time.Second)
	defer cncl()

	var paused bool
	err := c.Db.QueryRow(queryCtx, `SELECT is_paused FROM dag WHERE dag_id = $1`, dagID).Scan(&paused)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up dag %s: %w", dagID, err)
	}
	return &SchedulerDag{DagID: dagID, Paused: paused}, nil
}

// SetPaused flips the scheduler's paused flag for a dag.
func (c *Connection) SetPaused(ctx context.Context, dagID string, paused bool) error {
	execCtx, cncl := context.WithTimeout(ctx, 5*time.Second)
	defer cncl()

	cmdTag, err := c.Db.Exec(execCtx, `UPDATE dag SET is_paused = $2 WHERE dag_id = $1`, dagID, paused)
	if err != nil {
		return fmt.Errorf("failed to set dag %s paused to %t: %w", dagID, paused, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("dag %s is not registered, cannot set paused", dagID)
	}
	return nil
}

// HasImportError reports whether the scheduler recorded an import error for a file.
func (c *Connection) HasImportError(ctx context.Context, fullPath string) (bool, error) {
	queryCtx, cncl := context.WithTimeout(ctx, 5*time.Second)
	defer cncl()

	var hasError bool
	err := c.Db.QueryRow(queryCtx, `SELECT EXISTS(SELECT 1 FROM import_error WHERE filename = $1)`, fullPath).Scan(&hasError)
	if err != nil {
		return false, fmt.Errorf("failed to check import errors for %s: %w", fullPath, err)
	}
	return hasError, nil
}

func (c *Connection) IsAvailable() bool {
	if c.Db == nil {
		return false
	}
	ctx, cncl := get5SecondContext()
	defer cncl()
	err := c.Db.Ping(ctx)
	if err != nil {
		zap.S().Debugf("Failed to ping database: %s", err)
		return false
	}
	return true
}

func (c *Connection) HealthCheck() healthcheck.Check {
	return func() error {
		if c.IsAvailable() {
			return nil
		}
		return errors.New("healthcheck failed to reach database")
	}
}

func get5SecondContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
