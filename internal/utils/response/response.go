// Package response provides helpers for writing consistent HTTP responses:
// JSON bodies, error envelopes and redirects that carry a flash message.
package response

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/aanand-mishra/employees-app/internal/apperror"
)

// Response is the standard envelope returned for error cases.
//
// Error responses always look like:
//
//	{ "status": "error", "error": "The age must be at least 1.", "errors": { "age": "..." } }
//
// "errors" is only present for validation failures.
type Response struct {
	Status string            `json:"status"`
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// FlashCookie carries the one-shot success message across a redirect.
const FlashCookie = "flash"

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
// Header() → WriteHeader() → body: once WriteHeader is called, headers are
// locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError builds the envelope for a validation failure. The
// top-level message is the error's own text and "errors" carries its
// per-field messages.
func ValidationError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
		Errors: apperror.FieldErrors(err),
	}
}

// RedirectWithFlash redirects to location and leaves message for the
// next page to pick up with TakeFlash. POST gets 302 Found; PUT, PATCH and
// DELETE get 303 See Other so a script-driven client follows it with GET.
func RedirectWithFlash(w http.ResponseWriter, r *http.Request, location, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	status := http.StatusFound
	switch r.Method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, location, status)
}

// TakeFlash returns the pending flash message, if any, and expires it.
func TakeFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}
