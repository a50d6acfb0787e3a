// Package form models the employee create/edit form as the browser sees
// it: the field values, the input filters applied while typing, the
// pre-submit date check and the editing → submitting → closed lifecycle.
//
// The server uses it to build form props and to re-render a plain HTML
// form with its errors; static/employees.js applies the same rules in the
// browser. None of this replaces server-side validation.
package form

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/aanand-mishra/employees-app/internal/types"
)

// FutureDateMessage is the inline error shown without calling the server.
const FutureDateMessage = "Hired Date cannot be in the future."

// maxAgeDigits caps the age input; 999 is the largest valid age.
const maxAgeDigits = 3

type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateClosed     State = "closed"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Values holds the raw field strings exactly as the inputs show them.
type Values struct {
	Name      string `json:"name"`
	Age       string `json:"age"`
	Position  string `json:"position"`
	HiredDate string `json:"hired_date"`
}

// Model is one form instance.
type Model struct {
	Mode       Mode              `json:"mode"`
	EmployeeID int64             `json:"employee_id,omitempty"`
	Values     Values            `json:"values"`
	Errors     map[string]string `json:"errors"`
	DateError  string            `json:"date_error,omitempty"`
	State      State             `json:"state"`
}

func NewCreate() *Model {
	return &Model{Mode: ModeCreate, Errors: map[string]string{}, State: StateEditing}
}

// NewEdit pre-fills the form from a stored employee.
func NewEdit(e types.Employee) *Model {
	return &Model{
		Mode:       ModeEdit,
		EmployeeID: e.ID,
		Values: Values{
			Name:      e.Name,
			Age:       strconv.Itoa(e.Age),
			Position:  e.Position,
			HiredDate: e.HiredDate,
		},
		Errors: map[string]string{},
		State:  StateEditing,
	}
}

// Set applies the per-field input filter, as an input's change handler
// would. Unknown fields are ignored.
func (m *Model) Set(field, raw string) {
	switch field {
	case "name":
		m.Values.Name = SanitizeName(raw)
	case "age":
		if age, ok := SanitizeAge(raw); ok {
			m.Values.Age = age
		}
	case "position":
		m.Values.Position = raw
	case "hired_date":
		m.Values.HiredDate = raw
	}
}

// Submit moves the form to submitting unless the hired date is after
// today, in which case it stays editing with DateError set and the
// server is never called. It reports whether the request should be sent.
func (m *Model) Submit(now time.Time) bool {
	if m.State != StateEditing {
		return false
	}
	if IsFutureDate(m.Values.HiredDate, now) {
		m.DateError = FutureDateMessage
		return false
	}
	m.DateError = ""
	m.State = StateSubmitting
	return true
}

// Succeed closes the form after the server accepted the submission.
func (m *Model) Succeed() {
	if m.State == StateSubmitting {
		m.State = StateClosed
	}
}

// Fail returns to editing and shows the server's field errors.
func (m *Model) Fail(errs map[string]string) {
	if m.State != StateSubmitting {
		return
	}
	m.Errors = make(map[string]string, len(errs))
	for k, v := range errs {
		m.Errors[k] = v
	}
	m.State = StateEditing
}

// Fill types a submitted payload into empty inputs, field by field, so
// the values pass through the same filters as keyboard input.
func (m *Model) Fill(in types.EmployeeInput) {
	m.Values = Values{}
	m.Set("name", in.Name)
	m.Set("age", in.Age)
	m.Set("position", in.Position)
	m.Set("hired_date", in.HiredDate)
}

// Action is the method and path the form submits to.
func (m *Model) Action() (method, path string) {
	if m.Mode == ModeEdit {
		return "PUT", "/employees/" + strconv.FormatInt(m.EmployeeID, 10)
	}
	return "POST", "/employees"
}

// SanitizeName drops everything except ASCII letters and whitespace.
func SanitizeName(raw string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, raw)
}

// SanitizeAge keeps the digits of raw. ok is false when the input is
// longer than three characters, and the previous value should stay.
func SanitizeAge(raw string) (age string, ok bool) {
	if len(raw) > maxAgeDigits {
		return "", false
	}
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw), true
}

// IsFutureDate compares the YYYY-MM-DD value with now's calendar day.
// Empty or unparsable values are left for the server to reject.
func IsFutureDate(value string, now time.Time) bool {
	d, err := time.ParseInLocation(types.DateLayout, value, now.Location())
	if err != nil {
		return false
	}
	return d.Format(types.DateLayout) > now.Format(types.DateLayout)
}
