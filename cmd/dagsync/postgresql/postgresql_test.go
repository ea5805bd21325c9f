package postgresql

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/united-manufacturing-hub/umh-utils/logger"
)

func TestMain(m *testing.M) {
	_ = logger.New("DEVELOPMENT")
	os.Exit(m.Run())
}

func CreateMockConnection(t *testing.T) (*Connection, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("Failed to create mock connection: %v", err)
	}
	return &Connection{Db: mock}, mock
}

func TestGetDag(t *testing.T) {
	c, mock := CreateMockConnection(t)
	defer c.Db.Close()

	t.Run("registered", func(t *testing.T) {
		mock.ExpectQuery(`SELECT is_paused FROM dag WHERE dag_id = \$1`).
			WithArgs("etl_orders").
			WillReturnRows(mock.NewRows([]string{"is_paused"}).AddRow(true))

		dag, err := c.GetDag(context.Background(), "etl_orders")
		assert.NoError(t, err)
		assert.NotNil(t, dag)
		assert.Equal(t, "etl_orders", dag.DagID)
		assert.True(t, dag.Paused)
	})

	t.Run("not registered", func(t *testing.T) {
		mock.ExpectQuery(`SELECT is_paused FROM dag WHERE dag_id = \$1`).
			WithArgs("etl_unknown").
			WillReturnError(pgx.ErrNoRows)

		dag, err := c.GetDag(context.Background(), "etl_unknown")
		assert.NoError(t, err)
		assert.Nil(t, dag)
	})

	t.Run("query failure", func(t *testing.T) {
		mock.ExpectQuery(`SELECT is_paused FROM dag WHERE dag_id = \$1`).
			WithArgs("etl_orders").
			WillReturnError(errors.New("connection refused"))

		_, err := c.GetDag(context.Background(), "etl_orders")
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaused(t *testing.T) {
	c, mock := CreateMockConnection(t)
	defer c.Db.Close()

	t.Run("pause", func(t *testing.T) {
		mock.ExpectExec(`UPDATE dag SET is_paused = \$2 WHERE dag_id = \$1`).
			WithArgs("etl_orders", true).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := c.SetPaused(context.Background(), "etl_orders", true)
		assert.NoError(t, err)
	})

	t.Run("dag vanished", func(t *testing.T) {
		mock.ExpectExec(`UPDATE dag SET is_paused = \$2 WHERE dag_id = \$1`).
			WithArgs("etl_gone", false).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := c.SetPaused(context.Background(), "etl_gone", false)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasImportError(t *testing.T) {
	c, mock := CreateMockConnection(t)
	defer c.Db.Close()

	t.Run("broken file", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM import_error WHERE filename = \$1\)`).
			WithArgs("/dags/data/broken.py").
			WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

		hasError, err := c.HasImportError(context.Background(), "/dags/data/broken.py")
		assert.NoError(t, err)
		assert.True(t, hasError)
	})

	t.Run("healthy file", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM import_error WHERE filename = \$1\)`).
			WithArgs("/dags/data/etl.py").
			WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))

		hasError, err := c.HasImportError(context.Background(), "/dags/data/etl.py")
		assert.NoError(t, err)
		assert.False(t, hasError)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAvailable(t *testing.T) {
	c, mock := CreateMockConnection(t)
	defer c.Db.Close()

	mock.ExpectPing()
	assert.True(t, c.IsAvailable())

	assert.False(t, (&Connection{}).IsAvailable())
}

func TestHealthCheck(t *testing.T) {
	c, mock := CreateMockConnection(t)
	defer c.Db.Close()

	mock.ExpectPing()
	assert.NoError(t, c.HealthCheck()())

	empty := &Connection{}
	assert.Error(t, empty.HealthCheck()())
}
