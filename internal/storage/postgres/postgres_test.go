package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aanand-mishra/employees-app/internal/config"
	"github.com/aanand-mishra/employees-app/internal/storage"
	"github.com/aanand-mishra/employees-app/internal/types"
)

// dryRunDB renders SQL without ever opening a connection.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=employees dbname=employees sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func listSQL(t *testing.T, q types.ListQuery) string {
	t.Helper()
	db := dryRunDB(t)
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return pageScope(tx, q).Find(&[]employeeModel{})
	})
}

func TestPageScopeSortsNameCaseInsensitively(t *testing.T) {
	sql := listSQL(t, types.ListQuery{SortBy: types.SortName, SortDirection: types.SortDesc, Page: 2})

	assert.Contains(t, sql, `FROM "employees"`)
	assert.Contains(t, sql, "ORDER BY LOWER(name) DESC,id ASC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 10")
}

func TestPageScopeHugePageKeepsOffsetPositive(t *testing.T) {
	sql := listSQL(t, types.ListQuery{Page: types.ParsePage("1000000000000000000")})

	assert.Contains(t, sql, "OFFSET "+strconv.Itoa((types.MaxPage-1)*types.PerPage))
	assert.NotContains(t, sql, "OFFSET -")
}

func TestPageScopeWithoutSortOrdersById(t *testing.T) {
	sql := listSQL(t, types.ListQuery{SortBy: types.SortNone, Page: 1})

	assert.Contains(t, sql, "ORDER BY id ASC")
	assert.NotContains(t, sql, "LOWER(")
	assert.NotContains(t, sql, "WHERE")
}

func TestPageScopeFiltersNameOrPosition(t *testing.T) {
	sql := listSQL(t, types.ListQuery{Search: "50%_off", SortBy: types.SortAge, SortDirection: types.SortAsc, Page: 1})

	assert.Contains(t, sql, "name LIKE")
	assert.Contains(t, sql, "OR position LIKE")
	assert.Equal(t, 2, strings.Count(sql, `'%50\%\_off%'`))
	assert.Contains(t, sql, "ORDER BY age ASC,id ASC")
}

func TestMapDatabaseError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.ErrorIs(t, mapDatabaseError(dup, storage.ErrDuplicateName), storage.ErrDuplicateName)
	assert.ErrorIs(t, mapDatabaseError(io.EOF, storage.ErrDuplicateName), io.EOF)
}

// TestPostgresIntegration runs against a real database when
// EMPLOYEES_TEST_POSTGRES_DSN points at one.
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("EMPLOYEES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EMPLOYEES_TEST_POSTGRES_DSN not set")
	}

	cfg := &config.Config{Storage: config.Storage{Driver: config.DriverPostgres, DSN: dsn}}
	store, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.db.Exec("TRUNCATE employees, users RESTART IDENTITY").Error)

	userID, err := store.CreateUser(ctx, "Admin", "admin@example.com")
	require.NoError(t, err)

	id, err := store.CreateEmployee(ctx, types.Employee{
		Name: "Alice", Age: 30, Position: "Engineer", HiredDate: "2024-01-01", CreatedBy: &userID,
	})
	require.NoError(t, err)

	_, err = store.CreateEmployee(ctx, types.Employee{
		Name: "ALICE", Age: 25, Position: "Manager", HiredDate: "2024-01-01",
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateName)

	updated, err := store.UpdateEmployeeByID(ctx, id, types.Employee{
		Name: "Alice", Age: 31, Position: "Lead", HiredDate: "2024-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 31, updated.Age)
	assert.Equal(t, "2024-02-01", updated.HiredDate)
	require.NotNil(t, updated.CreatedBy)
	assert.Equal(t, userID, *updated.CreatedBy)

	rows, total, err := store.ListEmployees(ctx, types.ListQuery{Search: "Lead", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Creator)
	assert.Equal(t, "Admin", rows[0].Creator.Name)

	require.NoError(t, store.DeleteEmployeeByID(ctx, id))
	assert.ErrorIs(t, store.DeleteEmployeeByID(ctx, id), storage.ErrNotFound)
}
