package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = []Migration{
	{Version: 2, Description: "second", SQL: "CREATE TABLE b (id INT)"},
	{Version: 1, Description: "first", SQL: "CREATE TABLE a (id INT)"},
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(version\\), 0\\) FROM schema_migrations").
		WithArgs("subscription").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))

	for _, want := range []struct {
		sql     string
		version int
		desc    string
	}{{"CREATE TABLE a", 1, "first"}, {"CREATE TABLE b", 2, "second"}} {
		mock.ExpectBegin()
		mock.ExpectExec(want.sql).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs("subscription", want.version, want.desc).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := Migrate(context.Background(), db, "subscription", testMigrations)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WithArgs("tenancy").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))

	applied, err := Migrate(context.Background(), db, "tenancy", testMigrations)
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE b").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	_, err = Migrate(context.Background(), db, "x", testMigrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x/2")
	assert.NoError(t, mock.ExpectationsWereMet())
}
