package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresAdminChecker(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	checker := NewPostgresAdminChecker(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT 1 FROM super_admins").
		WithArgs(testUser).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	ok, err := checker.IsSuperAdmin(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery("SELECT 1 FROM super_admins").WithArgs(testUser).WillReturnError(sql.ErrNoRows)
	ok, err = checker.IsSuperAdmin(ctx, testUser)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery("SELECT 1 FROM super_admins").WithArgs(testUser).WillReturnError(errors.New("down"))
	ok, err = checker.IsSuperAdmin(ctx, testUser)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestStaticAdminChecker(t *testing.T) {
	checker := NewStaticAdminChecker(" 5F0C3C8E-8D2A-4C55-9A77-0C1D2E3F4A5B ", "")
	ok, err := checker.IsSuperAdmin(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = checker.IsSuperAdmin(context.Background(), "someone-else")
	assert.False(t, ok)
}

type failingChecker struct{}

func (failingChecker) IsSuperAdmin(context.Context, string) (bool, error) {
	return false, errors.New("unavailable")
}

func TestAnyAdminChecker(t *testing.T) {
	ctx := context.Background()

	ok, err := AnyAdminChecker{failingChecker{}, NewStaticAdminChecker(testUser)}.IsSuperAdmin(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AnyAdminChecker{failingChecker{}, NewStaticAdminChecker()}.IsSuperAdmin(ctx, testUser)
	assert.Error(t, err)
	assert.False(t, ok)

	ok, err = AnyAdminChecker{}.IsSuperAdmin(ctx, testUser)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), &Principal{UserID: testUser})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, testUser, p.UserID)
}
