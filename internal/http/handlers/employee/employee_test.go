package employee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aanand-mishra/employees-app/internal/apperror"
	"github.com/aanand-mishra/employees-app/internal/form"
	"github.com/aanand-mishra/employees-app/internal/http/middleware"
	"github.com/aanand-mishra/employees-app/internal/pagination"
	"github.com/aanand-mishra/employees-app/internal/types"
	"github.com/aanand-mishra/employees-app/internal/utils/response"
	"github.com/aanand-mishra/employees-app/internal/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubService struct {
	listFn   func(ctx context.Context, q types.ListQuery) (types.Page, error)
	getFn    func(ctx context.Context, id int64) (types.Employee, error)
	createFn func(ctx context.Context, input types.EmployeeInput, actingUserID *int64) (types.Employee, error)
	updateFn func(ctx context.Context, id int64, input types.EmployeeInput) (types.Employee, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (s stubService) List(ctx context.Context, q types.ListQuery) (types.Page, error) {
	if s.listFn == nil {
		return pagination.New(nil, 0, q.Page, types.PerPage), nil
	}
	return s.listFn(ctx, q)
}

func (s stubService) Get(ctx context.Context, id int64) (types.Employee, error) {
	if s.getFn == nil {
		return types.Employee{ID: id}, nil
	}
	return s.getFn(ctx, id)
}

func (s stubService) Create(ctx context.Context, input types.EmployeeInput, actingUserID *int64) (types.Employee, error) {
	if s.createFn == nil {
		return types.Employee{ID: 1}, nil
	}
	return s.createFn(ctx, input, actingUserID)
}

func (s stubService) Update(ctx context.Context, id int64, input types.EmployeeInput) (types.Employee, error) {
	if s.updateFn == nil {
		return types.Employee{ID: id}, nil
	}
	return s.updateFn(ctx, id, input)
}

func (s stubService) Delete(ctx context.Context, id int64) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

type stubUsers struct{}

func (stubUsers) GetUserByID(_ context.Context, id int64) (types.User, error) {
	return types.User{ID: id, Name: "Admin"}, nil
}

// newRouter wires the handlers the way cmd/employees does.
func newRouter(t *testing.T, svc stubService) http.Handler {
	t.Helper()

	views, err := view.New()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /employees", Index(svc, views))
	mux.HandleFunc("GET /employees/create", CreateForm(views))
	mux.HandleFunc("POST /employees", Store(svc, views))
	mux.HandleFunc("GET /employees/{id}/edit", EditForm(svc, views))
	mux.HandleFunc("PUT /employees/{id}", Update(svc, views))
	mux.HandleFunc("PATCH /employees/{id}", Update(svc, views))
	mux.HandleFunc("DELETE /employees/{id}", Destroy(svc, views))

	return middleware.Chain(mux,
		middleware.Recoverer,
		middleware.MethodOverride,
		middleware.ActingUser("X-User-ID", stubUsers{}),
	)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestIndexNormalisesQuery(t *testing.T) {
	var got types.ListQuery
	h := newRouter(t, stubService{
		listFn: func(_ context.Context, q types.ListQuery) (types.Page, error) {
			got = q
			return pagination.New(make([]types.Employee, 10), 25, q.Page, types.PerPage), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/employees?search=eng&sort_by=salary&sort_direction=DESC&page=2", nil)
	req.Header.Set(view.BridgeHeader, "true")
	rec := serve(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ListQuery{
		Search:        "eng",
		SortBy:        types.SortNone,
		SortDirection: types.SortDesc,
		Page:          2,
	}, got)

	var page struct {
		Component string          `json:"component"`
		Props     view.IndexProps `json:"props"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, view.ComponentIndex, page.Component)
	assert.Equal(t, 3, page.Props.Employees.LastPage)
	require.NotNil(t, page.Props.Employees.NextURL)
	assert.Equal(t, "/employees?page=3&search=eng", *page.Props.Employees.NextURL)
}

func TestIndexKeepsFilterAndSortInLinks(t *testing.T) {
	h := newRouter(t, stubService{
		listFn: func(_ context.Context, q types.ListQuery) (types.Page, error) {
			return pagination.New(make([]types.Employee, 10), 25, q.Page, types.PerPage), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/employees?search=a&sort_by=name", nil)
	req.Header.Set(view.BridgeHeader, "true")
	rec := serve(h, req)

	var page struct {
		Props view.IndexProps `json:"props"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))

	for _, l := range page.Props.Employees.Links {
		if l.URL == nil {
			continue
		}
		assert.Contains(t, *l.URL, "search=a")
		assert.Contains(t, *l.URL, "sort_by=name")
		assert.Contains(t, *l.URL, "sort_direction=asc")
	}
}

func TestIndexTakesFlash(t *testing.T) {
	h := newRouter(t, stubService{})

	req := httptest.NewRequest(http.MethodGet, "/employees", nil)
	req.AddCookie(&http.Cookie{Name: response.FlashCookie, Value: url.QueryEscape("Employee deleted successfully.")})
	rec := serve(h, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Employee deleted successfully.")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestIndexServiceFailure(t *testing.T) {
	h := newRouter(t, stubService{
		listFn: func(context.Context, types.ListQuery) (types.Page, error) {
			return types.Page{}, errors.New("database is locked")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/employees", nil)
	req.Header.Set(view.BridgeHeader, "true")
	rec := serve(h, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestStoreJSON(t *testing.T) {
	var (
		gotInput types.EmployeeInput
		gotActor *int64
	)
	h := newRouter(t, stubService{
		createFn: func(_ context.Context, input types.EmployeeInput, actingUserID *int64) (types.Employee, error) {
			gotInput, gotActor = input, actingUserID
			return types.Employee{ID: 9}, nil
		},
	})

	req := jsonRequest(http.MethodPost, "/employees",
		`{"name":"Alice","age":30,"position":"Engineer","hired_date":"2024-01-15"}`)
	req.Header.Set("X-User-ID", "4")
	rec := serve(h, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/employees", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), response.FlashCookie+"=")
	assert.Equal(t, types.EmployeeInput{Name: "Alice", Age: "30", Position: "Engineer", HiredDate: "2024-01-15"}, gotInput)
	require.NotNil(t, gotActor)
	assert.Equal(t, int64(4), *gotActor)
}

func TestStoreAnonymous(t *testing.T) {
	var gotActor = new(int64)
	h := newRouter(t, stubService{
		createFn: func(_ context.Context, _ types.EmployeeInput, actingUserID *int64) (types.Employee, error) {
			gotActor = actingUserID
			return types.Employee{ID: 1}, nil
		},
	})

	rec := serve(h, jsonRequest(http.MethodPost, "/employees", `{"name":"Bob"}`))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Nil(t, gotActor)
}

func TestStoreBadBody(t *testing.T) {
	h := newRouter(t, stubService{
		createFn: func(context.Context, types.EmployeeInput, *int64) (types.Employee, error) {
			t.Fatal("service must not be called")
			return types.Employee{}, nil
		},
	})

	for _, body := range []string{"", "{not json"} {
		rec := serve(h, jsonRequest(http.MethodPost, "/employees", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestStoreValidationJSON(t *testing.T) {
	fields := map[string]string{
		"name": "An employee with this name already exists. Please use a different name.",
		"age":  "The age must be at least 1.",
	}
	h := newRouter(t, stubService{
		createFn: func(context.Context, types.EmployeeInput, *int64) (types.Employee, error) {
			return types.Employee{}, apperror.Validation(fields)
		},
	})

	rec := serve(h, jsonRequest(http.MethodPost, "/employees", `{"name":"alice","age":"0"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, response.StatusError, body.Status)
	assert.Equal(t, fields, body.Errors)
}

func TestStoreValidationHTMLForm(t *testing.T) {
	var got types.EmployeeInput
	h := newRouter(t, stubService{
		createFn: func(_ context.Context, input types.EmployeeInput, _ *int64) (types.Employee, error) {
			got = input
			return types.Employee{}, apperror.Validation(map[string]string{
				"position": "The position field is required.",
			})
		},
	})

	rec := serve(h, formRequest("/employees", url.Values{
		"name":       {"Alice9"},
		"age":        {"30"},
		"hired_date": {"2024-01-15"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "The position field is required.")
	assert.Contains(t, body, `value="Alice"`)
	assert.Contains(t, body, `value="2024-01-15"`)

	// The service validates what was posted, not the filtered display.
	assert.Equal(t, "Alice9", got.Name)
}

func TestStoreHTMLFormFutureDateSkipsService(t *testing.T) {
	h := newRouter(t, stubService{
		createFn: func(context.Context, types.EmployeeInput, *int64) (types.Employee, error) {
			t.Fatal("service must not be called")
			return types.Employee{}, nil
		},
	})

	rec := serve(h, formRequest("/employees", url.Values{
		"name":       {"Alice"},
		"age":        {"30"},
		"position":   {"Engineer"},
		"hired_date": {"2999-01-01"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, form.FutureDateMessage)
	assert.Contains(t, body, `value="Alice"`)
	assert.Contains(t, body, `action="/employees"`)
}

func TestStoreJSONFutureDateReachesService(t *testing.T) {
	called := false
	h := newRouter(t, stubService{
		createFn: func(context.Context, types.EmployeeInput, *int64) (types.Employee, error) {
			called = true
			return types.Employee{}, apperror.Validation(map[string]string{
				"hired_date": "The hired date cannot be in the future.",
			})
		},
	})

	req := jsonRequest(http.MethodPost, "/employees",
		`{"name":"Alice","age":30,"position":"Engineer","hired_date":"2999-01-01"}`)
	req.Header.Set(view.BridgeHeader, "true")
	rec := serve(h, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, rec.Body.String(), form.FutureDateMessage)
}

func TestStoreDuplicateNameRaceIsUnprocessable(t *testing.T) {
	msg := "An employee with this name already exists. Please use a different name."
	h := newRouter(t, stubService{
		createFn: func(context.Context, types.EmployeeInput, *int64) (types.Employee, error) {
			return types.Employee{}, fmt.Errorf("create: %w", apperror.Validation(map[string]string{"name": msg}))
		},
	})

	req := jsonRequest(http.MethodPost, "/employees", `{"name":"Alice","age":30,"position":"Engineer","hired_date":"2024-01-15"}`)
	req.Header.Set(view.BridgeHeader, "true")
	rec := serve(h, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, msg, body.Error)
	assert.Equal(t, map[string]string{"name": msg}, body.Errors)
}

func TestEditForm(t *testing.T) {
	h := newRouter(t, stubService{
		getFn: func(_ context.Context, id int64) (types.Employee, error) {
			if id == 404 {
				return types.Employee{}, apperror.New(apperror.CodeNotFound, "employee not found")
			}
			return types.Employee{ID: id, Name: "Alice", Age: 30, Position: "Engineer", HiredDate: "2024-01-15"}, nil
		},
	})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/employees/3/edit", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/employees/3"`)
	assert.Contains(t, rec.Body.String(), `value="30"`)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/employees/404/edit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "employee not found")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/employees/abc/edit", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdate(t *testing.T) {
	var gotID int64
	h := newRouter(t, stubService{
		updateFn: func(_ context.Context, id int64, input types.EmployeeInput) (types.Employee, error) {
			if id == 404 {
				return types.Employee{}, apperror.New(apperror.CodeNotFound, "employee not found")
			}
			gotID = id
			return types.Employee{ID: id}, nil
		},
	})

	t.Run("json put", func(t *testing.T) {
		rec := serve(h, jsonRequest(http.MethodPut, "/employees/5",
			`{"name":"Alice","age":31,"position":"Lead","hired_date":"2024-01-15"}`))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, int64(5), gotID)
	})

	t.Run("patch", func(t *testing.T) {
		rec := serve(h, jsonRequest(http.MethodPatch, "/employees/6", `{"name":"Alice"}`))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, int64(6), gotID)
	})

	t.Run("form with method override", func(t *testing.T) {
		rec := serve(h, formRequest("/employees/7", url.Values{
			"_method": {"PUT"},
			"name":    {"Alice"},
		}))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, int64(7), gotID)
	})

	t.Run("missing", func(t *testing.T) {
		rec := serve(h, jsonRequest(http.MethodPut, "/employees/404", `{"name":"Alice"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := serve(h, jsonRequest(http.MethodPut, "/employees/0", `{"name":"Alice"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateValidationHTMLForm(t *testing.T) {
	h := newRouter(t, stubService{
		updateFn: func(context.Context, int64, types.EmployeeInput) (types.Employee, error) {
			return types.Employee{}, apperror.Validation(map[string]string{"age": "The age must be an integer."})
		},
	})

	rec := serve(h, formRequest("/employees/5", url.Values{
		"_method": {"PUT"},
		"name":    {"Alice"},
		"age":     {"abc"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "The age must be an integer.")
	assert.Contains(t, body, `action="/employees/5"`)
	assert.Contains(t, body, `name="_method" value="PUT"`)
}

func TestUpdateHTMLFormFutureDateSkipsService(t *testing.T) {
	h := newRouter(t, stubService{
		updateFn: func(context.Context, int64, types.EmployeeInput) (types.Employee, error) {
			t.Fatal("service must not be called")
			return types.Employee{}, nil
		},
	})

	rec := serve(h, formRequest("/employees/5", url.Values{
		"_method":    {"PUT"},
		"name":       {"Alice"},
		"age":        {"31"},
		"position":   {"Lead"},
		"hired_date": {"2999-01-01"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, form.FutureDateMessage)
	assert.Contains(t, body, `action="/employees/5"`)
	assert.Contains(t, body, `value="31"`)
}

func TestDestroy(t *testing.T) {
	deleted := map[int64]bool{}
	h := newRouter(t, stubService{
		deleteFn: func(_ context.Context, id int64) error {
			if id == 404 {
				return apperror.New(apperror.CodeNotFound, "employee not found")
			}
			deleted[id] = true
			return nil
		},
	})

	rec := serve(h, httptest.NewRequest(http.MethodDelete, "/employees/3", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, deleted[3])

	rec = serve(h, formRequest("/employees/4", url.Values{"_method": {"DELETE"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, deleted[4])

	req := httptest.NewRequest(http.MethodDelete, "/employees/404", nil)
	req.Header.Set(view.BridgeHeader, "true")
	rec = serve(h, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, deleted, 2)
}

func TestScalar(t *testing.T) {
	assert.Equal(t, "", scalar(nil))
	assert.Equal(t, "abc", scalar("abc"))
	assert.Equal(t, "30", scalar(json.Number("30")))
	assert.Equal(t, "30.5", scalar(json.Number("30.5")))
	assert.Equal(t, "true", scalar(true))
	assert.Equal(t, `[1]`, scalar([]any{json.Number("1")}))
}
