// Package employee is the application layer: it validates input, enforces
// name uniqueness and turns storage results into pages and typed errors.
package employee

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/employees-app/internal/apperror"
	"github.com/aanand-mishra/employees-app/internal/pagination"
	"github.com/aanand-mishra/employees-app/internal/storage"
	"github.com/aanand-mishra/employees-app/internal/types"
)

// Manager is what the HTTP handlers need from the service.
type Manager interface {
	List(ctx context.Context, q types.ListQuery) (types.Page, error)
	Get(ctx context.Context, id int64) (types.Employee, error)
	Create(ctx context.Context, input types.EmployeeInput, actingUserID *int64) (types.Employee, error)
	Update(ctx context.Context, id int64, input types.EmployeeInput) (types.Employee, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	storage  storage.Storage
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, which decides what "today" is for the
// hired date check.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(st storage.Storage, opts ...Option) *Service {
	s := &Service{storage: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.validate = newValidator(func() time.Time { return s.now() })
	return s
}

// List returns one page of employees. It never fails on bad sort or page
// input; those were normalised when the ListQuery was built.
func (s *Service) List(ctx context.Context, q types.ListQuery) (types.Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > types.MaxPage {
		q.Page = types.MaxPage
	}

	rows, total, err := s.storage.ListEmployees(ctx, q)
	if err != nil {
		return types.Page{}, fmt.Errorf("list employees: %w", err)
	}

	return pagination.New(rows, total, q.Page, types.PerPage), nil
}

func (s *Service) Get(ctx context.Context, id int64) (types.Employee, error) {
	e, err := s.storage.GetEmployeeByID(ctx, id)
	if err != nil {
		return types.Employee{}, notFoundOr(err, "load employee")
	}
	return e, nil
}

// Create validates input and stores a new employee owned by actingUserID.
// Nothing is written when any field fails.
func (s *Service) Create(ctx context.Context, input types.EmployeeInput, actingUserID *int64) (types.Employee, error) {
	input = normalize(input)

	fields, err := s.check(ctx, input, 0)
	if err != nil {
		return types.Employee{}, err
	}
	if len(fields) > 0 {
		return types.Employee{}, apperror.Validation(fields)
	}

	record := toEmployee(input)
	record.CreatedBy = actingUserID

	id, err := s.storage.CreateEmployee(ctx, record)
	if err != nil {
		// Lost the race against a concurrent create of the same name.
		if errors.Is(err, storage.ErrDuplicateName) {
			return types.Employee{}, apperror.Validation(map[string]string{"name": duplicateNameMessage})
		}
		return types.Employee{}, fmt.Errorf("create employee: %w", err)
	}

	return s.Get(ctx, id)
}

// Update overwrites every editable field of employee id. The record must
// exist before its input is even looked at.
func (s *Service) Update(ctx context.Context, id int64, input types.EmployeeInput) (types.Employee, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return types.Employee{}, err
	}

	input = normalize(input)

	fields, err := s.check(ctx, input, id)
	if err != nil {
		return types.Employee{}, err
	}
	if len(fields) > 0 {
		return types.Employee{}, apperror.Validation(fields)
	}

	updated, err := s.storage.UpdateEmployeeByID(ctx, id, toEmployee(input))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			return types.Employee{}, apperror.Validation(map[string]string{"name": duplicateNameMessage})
		}
		return types.Employee{}, notFoundOr(err, "update employee")
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.storage.DeleteEmployeeByID(ctx, id); err != nil {
		return notFoundOr(err, "delete employee")
	}
	return nil
}

// check runs the field rules and, when the name itself is acceptable,
// the uniqueness lookup. excludeID is the record being updated (0 on
// create).
func (s *Service) check(ctx context.Context, input types.EmployeeInput, excludeID int64) (map[string]string, error) {
	fields, err := fieldErrors(s.validate.Struct(input))
	if err != nil {
		return nil, err
	}

	if _, bad := fields["name"]; bad {
		return fields, nil
	}

	taken, err := s.storage.EmployeeNameExists(ctx, input.Name, excludeID)
	if err != nil {
		return nil, fmt.Errorf("check name uniqueness: %w", err)
	}
	if taken {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["name"] = duplicateNameMessage
	}

	return fields, nil
}

func normalize(input types.EmployeeInput) types.EmployeeInput {
	return types.EmployeeInput{
		Name:      strings.TrimSpace(input.Name),
		Age:       strings.TrimSpace(input.Age),
		Position:  strings.TrimSpace(input.Position),
		HiredDate: strings.TrimSpace(input.HiredDate),
	}
}

// toEmployee assumes input already passed validation.
func toEmployee(input types.EmployeeInput) types.Employee {
	age, _ := strconv.Atoi(input.Age)
	return types.Employee{
		Name:      input.Name,
		Age:       age,
		Position:  input.Position,
		HiredDate: input.HiredDate,
	}
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.New(apperror.CodeNotFound, "employee not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}
