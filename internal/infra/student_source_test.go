package infra

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMySQLStudentSource_RejectsUnsafeTableNames(t *testing.T) {
	for _, table := range []string{"", "students; DROP TABLE x", "a.b", "name`"} {
		_, err := NewMySQLStudentSource("user:pass@tcp(127.0.0.1:1)/db", table, nil)
		assert.Error(t, err, table)
	}
}

func TestStudentSource_FetchRows(t *testing.T) {
	db, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE pupils (roll_no TEXT, name TEXT, year INTEGER)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO pupils VALUES ('101', 'Asha', 2), ('102', 'Ravi', 3)`).Error)

	src := NewStudentSource(db, "pupils", nil)
	assert.Equal(t, "pupils", src.Table())
	require.NotNil(t, src.Breaker())

	rows, err := src.FetchRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	name := rows[0]["name"]
	if b, ok := name.([]byte); ok {
		name = string(b)
	}
	assert.Equal(t, "Asha", name)
	assert.Equal(t, "closed", src.Breaker().Stats().State)
}

func TestStudentSource_MissingTableDoesNotTripTheBreaker(t *testing.T) {
	db, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	src := NewStudentSource(db, "missing", cb)
	for i := 0; i < 3; i++ {
		_, err := src.FetchRows(context.Background())
		assert.ErrorIs(t, err, ErrStudentTableMissing)
	}
	assert.Equal(t, "closed", cb.Stats().State)
	assert.Zero(t, cb.Stats().Failures)
}

func TestStudentSource_OutagesTripTheBreaker(t *testing.T) {
	db, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	src := NewStudentSource(db, "pupils", cb)
	for i := 0; i < 2; i++ {
		_, err := src.FetchRows(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStudentTableMissing)
	}
	_, err = src.FetchRows(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestStudentSource_CancelledCallerIsNotAnOutage(t *testing.T) {
	db, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE pupils (name TEXT)`).Error)

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	src := NewStudentSource(db, "pupils", cb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = src.FetchRows(ctx)
	require.Error(t, err)
	assert.Equal(t, "closed", cb.Stats().State)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db, err := NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))
	require.NoError(t, RunMigrations(db))
	assert.True(t, db.Migrator().HasTable("transaction_item_components"))
	assert.True(t, db.Migrator().HasTable("stock_movements"))
}
