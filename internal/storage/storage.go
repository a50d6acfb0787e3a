// Package storage defines the Storage interface, the contract every
// record store backend (SQLite, PostgreSQL) must satisfy.
//
// The employee service only depends on this interface, so switching
// databases means implementing it for the new backend and changing the
// constructor call in cmd/employees. Tests of the service and handlers
// pass in-memory fakes instead of a real database.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/employees-app/internal/types"
)

var (
	// ErrNotFound is returned when no row matches the given id.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateName is returned when a write would violate the
	// case-insensitive unique index on employees.name.
	ErrDuplicateName = errors.New("employee name already taken")

	// ErrDuplicateEmail is returned when a user email is already registered.
	ErrDuplicateEmail = errors.New("user email already registered")
)

// Storage is the database contract.
type Storage interface {
	// CreateEmployee inserts e (ID, timestamps and Creator are ignored)
	// and returns the generated primary key.
	CreateEmployee(ctx context.Context, e types.Employee) (int64, error)

	// GetEmployeeByID returns ErrNotFound if no such employee exists.
	GetEmployeeByID(ctx context.Context, id int64) (types.Employee, error)

	// ListEmployees returns one page of employees matching q, each with
	// its creator embedded, together with the total number of matches.
	ListEmployees(ctx context.Context, q types.ListQuery) ([]types.Employee, int, error)

	// UpdateEmployeeByID overwrites name, age, position and hired_date,
	// refreshes updated_at and leaves created_by untouched. Returns the
	// stored record, or ErrNotFound.
	UpdateEmployeeByID(ctx context.Context, id int64, e types.Employee) (types.Employee, error)

	// DeleteEmployeeByID hard-deletes a row, or returns ErrNotFound.
	DeleteEmployeeByID(ctx context.Context, id int64) error

	// EmployeeNameExists reports whether any employee other than
	// excludeID has name under case-insensitive comparison. Pass 0 to
	// exclude nothing.
	EmployeeNameExists(ctx context.Context, name string, excludeID int64) (bool, error)

	// CreateUser inserts a user and returns its id.
	CreateUser(ctx context.Context, name, email string) (int64, error)

	// GetUserByID returns ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id int64) (types.User, error)

	Close() error
}

// EscapeLike escapes the LIKE wildcards in s so it matches literally.
// Both backends use '\' as the ESCAPE character.
func EscapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
