// Package employee contains the HTTP handlers of the employee resource.
//
// Handlers are factories: each receives its dependencies once at startup
// and returns the http.HandlerFunc the router calls on every request.
//
//	router.HandleFunc("GET /employees", employee.Index(svc, views))
//
// Every page answer is a view.Page, so the same handler serves the HTML
// shell and the JSON page object of the client bridge.
package employee

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aanand-mishra/employees-app/internal/apperror"
	service "github.com/aanand-mishra/employees-app/internal/employee"
	"github.com/aanand-mishra/employees-app/internal/form"
	"github.com/aanand-mishra/employees-app/internal/http/middleware"
	"github.com/aanand-mishra/employees-app/internal/pagination"
	"github.com/aanand-mishra/employees-app/internal/types"
	"github.com/aanand-mishra/employees-app/internal/utils/response"
	"github.com/aanand-mishra/employees-app/internal/view"
)

const listPath = "/employees"

// maxBodyBytes bounds create and update payloads.
const maxBodyBytes = 64 << 10

const (
	msgCreated = "Employee created successfully."
	msgUpdated = "Employee updated successfully."
	msgDeleted = "Employee deleted successfully."
)

// ─────────────────────────────────────────────────────────────────────────────
// Index handles GET /employees
//
// Query parameters, all optional:
//
//	search          substring of name or position, matched with the store's LIKE
//	sort_by         name | age | position | hired_date | created_at
//	sort_direction  asc (default) | desc
//	page            1-based, defaults to 1
//
// Unknown sort fields and bad page numbers fall back to the defaults
// rather than failing the request.
// ─────────────────────────────────────────────────────────────────────────────
func Index(svc service.Manager, views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		q := types.ListQuery{
			Search:        qs.Get("search"),
			SortBy:        types.ParseSortField(qs.Get("sort_by")),
			SortDirection: types.ParseSortDirection(qs.Get("sort_direction")),
			Page:          types.ParsePage(qs.Get("page")),
		}

		page, err := svc.List(r.Context(), q)
		if err != nil {
			respondError(w, r, views, err)
			return
		}

		// Echo back the normalised values so links and controls agree
		// with what was actually applied.
		params := map[string]string{
			"search":         q.Search,
			"sort_by":        string(q.SortBy),
			"sort_direction": string(q.SortDirection),
		}
		if q.SortBy == types.SortNone {
			params["sort_direction"] = ""
		}
		pagination.NewLinker(listPath, params).Attach(&page)

		render(w, r, views, http.StatusOK, view.Page{
			Component: view.ComponentIndex,
			Props: view.IndexProps{
				Employees:     page,
				Search:        q.Search,
				SortBy:        string(q.SortBy),
				SortDirection: string(q.SortDirection),
				Flash:         view.Flash{Success: response.TakeFlash(w, r)},
			},
		})
	}
}

// CreateForm handles GET /employees/create
func CreateForm(views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, views, http.StatusOK, view.Page{
			Component: view.ComponentCreate,
			Props:     view.FormProps{Form: form.NewCreate()},
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Store handles POST /employees
//
// Body: JSON or a urlencoded form with name, age, position and hired_date.
// The record is owned by the acting user, if the request has one.
//
//	302 → /employees with the flash "Employee created successfully."
//	422 field errors, nothing stored
//
// ─────────────────────────────────────────────────────────────────────────────
func Store(svc service.Manager, views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())

		input, err := decodeInput(w, r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		m := form.NewCreate()
		if !precheck(w, r, views, m, input) {
			return
		}

		created, err := svc.Create(r.Context(), input, middleware.ActingUserID(r.Context()))
		if err != nil {
			respondFormError(w, r, views, m, err)
			return
		}
		m.Succeed()

		log.Info("employee created", slog.Int64("id", created.ID))
		response.RedirectWithFlash(w, r, listPath, msgCreated)
	}
}

// EditForm handles GET /employees/{id}/edit
func EditForm(svc service.Manager, views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		e, err := svc.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, views, err)
			return
		}

		render(w, r, views, http.StatusOK, view.Page{
			Component: view.ComponentEdit,
			Props:     view.FormProps{Form: form.NewEdit(e), Employee: &e},
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT and PATCH /employees/{id}
//
// Same body and rules as Store. The record keeps its creator.
//
//	303 → /employees with the flash "Employee updated successfully."
//	404 no such employee
//	422 field errors, record unchanged
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc service.Manager, views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())

		id, ok := pathID(w, r)
		if !ok {
			return
		}

		input, err := decodeInput(w, r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		m := form.NewEdit(types.Employee{ID: id})
		if !precheck(w, r, views, m, input) {
			return
		}

		if _, err := svc.Update(r.Context(), id, input); err != nil {
			respondFormError(w, r, views, m, err)
			return
		}
		m.Succeed()

		log.Info("employee updated", slog.Int64("id", id))
		response.RedirectWithFlash(w, r, listPath, msgUpdated)
	}
}

// Destroy handles DELETE /employees/{id}
func Destroy(svc service.Manager, views *view.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())

		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			respondError(w, r, views, err)
			return
		}

		log.Info("employee deleted", slog.Int64("id", id))
		response.RedirectWithFlash(w, r, listPath, msgDeleted)
	}
}

// pathID parses {id}. On failure it has already answered 400.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be a positive integer")))
		return 0, false
	}
	return id, true
}

// decodeInput reads the payload from a JSON body or a urlencoded form.
// JSON values of any scalar type are kept as their literal text so the
// service reports type problems as field errors.
func decodeInput(w http.ResponseWriter, r *http.Request) (types.EmployeeInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if !isJSON(r) {
		if err := r.ParseForm(); err != nil {
			return types.EmployeeInput{}, fmt.Errorf("invalid form body: %w", err)
		}
		return types.EmployeeInput{
			Name:      r.PostFormValue("name"),
			Age:       r.PostFormValue("age"),
			Position:  r.PostFormValue("position"),
			HiredDate: r.PostFormValue("hired_date"),
		}, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	err := dec.Decode(&raw)
	if errors.Is(err, io.EOF) {
		return types.EmployeeInput{}, errors.New("request body is empty")
	}
	if err != nil {
		return types.EmployeeInput{}, fmt.Errorf("invalid JSON body: %w", err)
	}

	return types.EmployeeInput{
		Name:      scalar(raw["name"]),
		Age:       scalar(raw["age"]),
		Position:  scalar(raw["position"]),
		HiredDate: scalar(raw["hired_date"]),
	}, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func scalar(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		// Objects and arrays are never a valid field value.
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// plainForm is true for a form post made without the client script.
func plainForm(r *http.Request) bool {
	return !view.IsBridge(r) && !isJSON(r)
}

// precheck stands in for the browser's pre-submit checks on plain form
// posts: the payload goes through the input filters and a hired date
// after today re-renders the form without calling the service. It
// reports whether the handler should go on.
func precheck(w http.ResponseWriter, r *http.Request, views *view.Renderer, m *form.Model, input types.EmployeeInput) bool {
	if !plainForm(r) {
		return true
	}

	m.Fill(input)
	if m.Submit(time.Now()) {
		return true
	}
	renderForm(w, r, views, http.StatusUnprocessableEntity, m)
	return false
}

// respondFormError answers a failed create or update. Validation errors
// go back to the form: as JSON for bridge and API clients, as the
// re-rendered form page otherwise.
func respondFormError(w http.ResponseWriter, r *http.Request, views *view.Renderer, m *form.Model, err error) {
	if apperror.GetCode(err) != apperror.CodeValidation {
		respondError(w, r, views, err)
		return
	}

	if !plainForm(r) {
		response.WriteJSON(w, http.StatusUnprocessableEntity, response.ValidationError(err))
		return
	}

	m.Fail(apperror.FieldErrors(err))
	renderForm(w, r, views, http.StatusUnprocessableEntity, m)
}

func renderForm(w http.ResponseWriter, r *http.Request, views *view.Renderer, status int, m *form.Model) {
	component := view.ComponentCreate
	if m.Mode == form.ModeEdit {
		component = view.ComponentEdit
	}
	render(w, r, views, status, view.Page{
		Component: component,
		Props:     view.FormProps{Form: m},
	})
}

// respondError maps err onto a status code. Only unexpected errors are
// logged; their text never reaches the client.
func respondError(w http.ResponseWriter, r *http.Request, views *view.Renderer, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch apperror.GetCode(err) {
	case apperror.CodeNotFound:
		status, msg = http.StatusNotFound, err.Error()
	case apperror.CodeValidation:
		status, msg = http.StatusUnprocessableEntity, err.Error()
	default:
		middleware.LoggerFrom(r.Context()).Error("request failed",
			slog.String("error", err.Error()))
	}

	if view.IsBridge(r) || !acceptsHTML(r) {
		response.WriteJSON(w, status, response.Response{
			Status: response.StatusError,
			Error:  msg,
			Errors: apperror.FieldErrors(err),
		})
		return
	}

	render(w, r, views, status, view.Page{
		Component: view.ComponentError,
		Props:     view.ErrorProps{Status: status, Message: msg},
	})
}

// acceptsHTML is true for browser navigation and plain form posts.
func acceptsHTML(r *http.Request) bool {
	if isJSON(r) {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || containsMedia(accept, "text/html") || containsMedia(accept, "*/*")
}

func containsMedia(accept, media string) bool {
	for len(accept) > 0 {
		var part string
		part, accept, _ = strings.Cut(accept, ",")
		mt, _, err := mime.ParseMediaType(part)
		if err == nil && mt == media {
			return true
		}
	}
	return false
}

func render(w http.ResponseWriter, r *http.Request, views *view.Renderer, status int, page view.Page) {
	if err := views.Render(w, r, status, page); err != nil {
		middleware.LoggerFrom(r.Context()).Error("render failed",
			slog.String("component", page.Component),
			slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError,
			response.GeneralError(errors.New("internal server error")))
	}
}
