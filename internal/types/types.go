// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, the employee service, storage and views can all import types
// without depending on each other.
package types

import "time"

// DateLayout is the wire and storage format of hired_date.
const DateLayout = "2006-01-02"

// User is the minimal identity a record can point at through created_by.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Employee represents an employee record as it is stored.
//
// HiredDate is kept as a YYYY-MM-DD string: it is a calendar date, not an
// instant, so carrying it as time.Time would drag a time zone along.
// Creator is only populated by list queries (the embedded creator shown
// in the table).
type Employee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Position  string    `json:"position"`
	HiredDate string    `json:"hired_date"`
	CreatedBy *int64    `json:"created_by"`
	Creator   *User     `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmployeeInput is the raw, unvalidated payload of a create or update.
//
// Every field is a string: HTML forms and JSON clients both
// end up here, and "abc" for the age must surface as a field error, not
// as a decode failure of the whole request.
//
// validate:"..." tags are checked by the go-playground/validator instance
// owned by the employee service; the custom tags (integer, int_min,
// int_max, not_future) are registered there.
type EmployeeInput struct {
	Name      string `json:"name"       validate:"required,max=255"`
	Age       string `json:"age"        validate:"required,integer,int_min=1,int_max=999"`
	Position  string `json:"position"   validate:"required,max=255"`
	HiredDate string `json:"hired_date" validate:"required,datetime=2006-01-02,not_future"`
}
