package employee

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/employees-app/internal/types"
)

const duplicateNameMessage = "An employee with this name already exists. Please use a different name."

// newValidator builds the validator used for EmployeeInput. now is
// consulted on every check so "today" moves with the clock.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages and error maps match
	// the form field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	must(v.RegisterValidation("integer", func(fl validator.FieldLevel) bool {
		_, err := strconv.Atoi(fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("int_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		bound, perr := strconv.Atoi(fl.Param())
		return err == nil && perr == nil && n >= bound
	}))
	must(v.RegisterValidation("int_max", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		bound, perr := strconv.Atoi(fl.Param())
		return err == nil && perr == nil && n <= bound
	}))
	must(v.RegisterValidation("not_future", func(fl validator.FieldLevel) bool {
		return notFuture(fl.Field().String(), now())
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// notFuture reports whether the YYYY-MM-DD date is on or before the
// calendar day of now, in now's location.
func notFuture(date string, now time.Time) bool {
	d, err := time.ParseInLocation(types.DateLayout, date, now.Location())
	if err != nil {
		return false
	}
	return d.Format(types.DateLayout) <= now.Format(types.DateLayout)
}

// fieldErrors converts the validator output into one message per field.
// Any error that is not a ValidationErrors is a programming mistake in
// the tags and is returned as is.
func fieldErrors(err error) (map[string]string, error) {
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validate employee input: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return fields, nil
}

// message renders one failed rule the way the form shows it, using the
// field's JSON name with underscores as spaces ("hired date").
func message(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "integer":
		return fmt.Sprintf("The %s must be an integer.", label)
	case "int_min":
		return fmt.Sprintf("The %s must be at least %s.", label, fe.Param())
	case "int_max":
		return fmt.Sprintf("The %s must be a number between 1 and %s.", label, fe.Param())
	case "datetime":
		return fmt.Sprintf("Please enter a valid date for the %s.", label)
	case "not_future":
		return fmt.Sprintf("The %s cannot be in the future.", label)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}
