// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite keeps everything in a single file on disk: no network, no
// separate server process. It is the default backend for local runs and
// the one the package tests exercise.
//
// The package registers its own database/sql driver, "sqlite3_employees",
// on top of go-sqlite3. Every connection it opens gets a fold() SQL
// function that lowercases with Go's strings.ToLower. SQLite's built-in
// LOWER only folds ASCII, so "Émile" and "émile" would otherwise count as
// different names.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/employees-app/internal/config"
	"github.com/aanand-mishra/employees-app/internal/storage"
	"github.com/aanand-mishra/employees-app/internal/types"
)

// driverName is the database/sql name of the sqlite3 driver with fold()
// registered on each connection.
const driverName = "sqlite3_employees"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// pure=true marks fold() deterministic, which SQLite requires
			// before it lets the function appear in an index.
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

// schema is idempotent and runs on every startup.
//
// The expression index on fold(name) is what actually guarantees
// case-insensitive uniqueness: the service's existence check only gives a
// friendlier error in the common case, two concurrent creates can both
// pass it. The older ASCII-only LOWER(name) index is dropped.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         INTEGER  PRIMARY KEY AUTOINCREMENT,
		name       TEXT     NOT NULL,
		email      TEXT     NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id         INTEGER  PRIMARY KEY AUTOINCREMENT,
		name       TEXT     NOT NULL,
		age        INTEGER  NOT NULL,
		position   TEXT     NOT NULL,
		hired_date TEXT     NOT NULL,
		created_by INTEGER  NULL REFERENCES users(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`DROP INDEX IF EXISTS employees_name_lower_unique`,
	`CREATE UNIQUE INDEX IF NOT EXISTS employees_name_fold_unique ON employees (fold(name))`,
}

// selectEmployee joins the creator so list rows can embed it.
const selectEmployee = `
	SELECT e.id, e.name, e.age, e.position, e.hired_date, e.created_by,
	       e.created_at, e.updated_at,
	       u.id, u.name, u.email, u.created_at
	FROM employees e
	LEFT JOIN users u ON u.id = e.created_by`

// SQLite is the concrete implementation of storage.Storage.
// *sql.DB is a connection pool and is safe for concurrent use.
type SQLite struct {
	Db *sql.DB

	now func() time.Time
}

// New opens the SQLite database at cfg.Storage.Path.
func New(cfg *config.Config) (*SQLite, error) {
	return Open(cfg.Storage.Path)
}

// Open opens (creating if needed) the database file at path, enables
// foreign keys and creates the schema.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.Open: create directory: %w", err)
		}
	}

	// sql.Open does NOT connect yet; it only validates the driver name.
	db, err := sql.Open(driverName, path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite.Open: create schema: %w", err)
		}
	}

	return &SQLite{Db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

// CreateEmployee inserts a new row. created_at and updated_at are both set
// to the current time; created_by is written here and never again.
func (s *SQLite) CreateEmployee(ctx context.Context, e types.Employee) (int64, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO employees (name, age, position, hired_date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("CreateEmployee: prepare: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	result, err := stmt.ExecContext(ctx, e.Name, e.Age, e.Position, e.HiredDate, nullInt64(e.CreatedBy), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("CreateEmployee: %w", storage.ErrDuplicateName)
		}
		return 0, fmt.Errorf("CreateEmployee: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateEmployee: last insert id: %w", err)
	}

	return lastID, nil
}

func (s *SQLite) GetEmployeeByID(ctx context.Context, id int64) (types.Employee, error) {
	stmt, err := s.Db.PrepareContext(ctx, selectEmployee+" WHERE e.id = ? LIMIT 1")
	if err != nil {
		return types.Employee{}, fmt.Errorf("GetEmployeeByID: prepare: %w", err)
	}
	defer stmt.Close()

	employee, err := scanEmployee(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Employee{}, fmt.Errorf("no employee found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Employee{}, fmt.Errorf("GetEmployeeByID: scan: %w", err)
	}

	return employee, nil
}

// ListEmployees runs the count and the page query concurrently; both see
// the same WHERE clause.
func (s *SQLite) ListEmployees(ctx context.Context, q types.ListQuery) ([]types.Employee, int, error) {
	where, args := filterClause(q.Search)

	var (
		total     int
		employees = make([]types.Employee, 0, types.PerPage)
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		row := s.Db.QueryRowContext(gctx, "SELECT COUNT(*) FROM employees e"+where, args...)
		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("ListEmployees: count: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		query := selectEmployee + where + orderClause(q.SortBy, q.SortDirection) + " LIMIT ? OFFSET ?"
		pageArgs := append(append([]any{}, args...), types.PerPage, q.Offset())

		rows, err := s.Db.QueryContext(gctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("ListEmployees: query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			employee, err := scanEmployee(rows)
			if err != nil {
				return fmt.Errorf("ListEmployees: scan row: %w", err)
			}
			employees = append(employees, employee)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("ListEmployees: rows iteration: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return employees, total, nil
}

// UpdateEmployeeByID leaves id, created_by and created_at alone.
func (s *SQLite) UpdateEmployeeByID(ctx context.Context, id int64, e types.Employee) (types.Employee, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		UPDATE employees
		SET name = ?, age = ?, position = ?, hired_date = ?, updated_at = ?
		WHERE id = ?`)
	if err != nil {
		return types.Employee{}, fmt.Errorf("UpdateEmployeeByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, e.Name, e.Age, e.Position, e.HiredDate, s.now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Employee{}, fmt.Errorf("UpdateEmployeeByID: %w", storage.ErrDuplicateName)
		}
		return types.Employee{}, fmt.Errorf("UpdateEmployeeByID: exec: %w", err)
	}

	if err := requireAffected(result, id); err != nil {
		return types.Employee{}, fmt.Errorf("UpdateEmployeeByID: %w", err)
	}

	// Re-fetch so the caller sees exactly what is stored.
	return s.GetEmployeeByID(ctx, id)
}

func (s *SQLite) DeleteEmployeeByID(ctx context.Context, id int64) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM employees WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteEmployeeByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteEmployeeByID: exec: %w", err)
	}

	if err := requireAffected(result, id); err != nil {
		return fmt.Errorf("DeleteEmployeeByID: %w", err)
	}

	return nil
}

func (s *SQLite) EmployeeNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.Db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM employees WHERE fold(name) = fold(?) AND id <> ?)",
		name, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("EmployeeNameExists: %w", err)
	}
	return exists, nil
}

func (s *SQLite) CreateUser(ctx context.Context, name, email string) (int64, error) {
	result, err := s.Db.ExecContext(ctx,
		"INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)",
		name, email, s.now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("CreateUser: %w", storage.ErrDuplicateEmail)
		}
		return 0, fmt.Errorf("CreateUser: exec: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateUser: last insert id: %w", err)
	}
	return id, nil
}

func (s *SQLite) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	var user types.User
	err := s.Db.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM users WHERE id = ? LIMIT 1", id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, fmt.Errorf("no user found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.User{}, fmt.Errorf("GetUserByID: scan: %w", err)
	}
	return user, nil
}

// filterClause matches the search text anywhere in name or position.
// SQLite's LIKE is case-insensitive for ASCII, which is the engine
// default the list promises.
func filterClause(search string) (string, []any) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}
	pattern := "%" + storage.EscapeLike(search) + "%"
	return ` WHERE (e.name LIKE ? ESCAPE '\' OR e.position LIKE ? ESCAPE '\')`, []any{pattern, pattern}
}

var sortColumns = map[types.SortField]string{
	types.SortName:      "fold(e.name)",
	types.SortAge:       "e.age",
	types.SortPosition:  "e.position",
	types.SortHiredDate: "e.hired_date",
	types.SortCreatedAt: "e.created_at",
}

// orderClause always ends on e.id so pages are stable between calls.
// Columns come from a fixed map, never from user input.
func orderClause(field types.SortField, dir types.SortDirection) string {
	col, ok := sortColumns[field]
	if !ok {
		return " ORDER BY e.id ASC"
	}
	direction := "ASC"
	if dir == types.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, e.id ASC", col, direction)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (types.Employee, error) {
	var (
		e         types.Employee
		createdBy sql.NullInt64
		userID    sql.NullInt64
		userName  sql.NullString
		userEmail sql.NullString
		userAt    sql.NullTime
	)

	// The order of variables must match the SELECT column order.
	if err := row.Scan(
		&e.ID, &e.Name, &e.Age, &e.Position, &e.HiredDate, &createdBy,
		&e.CreatedAt, &e.UpdatedAt,
		&userID, &userName, &userEmail, &userAt,
	); err != nil {
		return types.Employee{}, err
	}

	if createdBy.Valid {
		id := createdBy.Int64
		e.CreatedBy = &id
	}
	if userID.Valid {
		e.Creator = &types.User{
			ID:        userID.Int64,
			Name:      userName.String,
			Email:     userEmail.String,
			CreatedAt: userAt.Time,
		}
	}

	return e, nil
}

func requireAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no employee found with id %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
