// Package middleware holds the http.Handler wrappers every request passes
// through before it reaches a handler.
//
// Each middleware has the shape func(http.Handler) http.Handler, so they
// compose with Chain:
//
//	handler := middleware.Chain(router,
//		middleware.Recoverer,
//		middleware.RequestID,
//		middleware.AccessLog(log),
//		middleware.MethodOverride,
//		middleware.ActingUser(cfg.Auth.UserHeader, store),
//	)
//
// The first middleware in the list is the outermost one.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/employees-app/internal/types"
	"github.com/aanand-mishra/employees-app/internal/utils/response"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	loggerKey
	actingUserKey
)

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that mws[0] runs first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ─────────────────────────────────────────────────────────────────────────────
// Request id
// ─────────────────────────────────────────────────────────────────────────────

// RequestID tags the request with a UUID. A well-formed id sent by a proxy
// is kept so log lines can be joined across hops.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ─────────────────────────────────────────────────────────────────────────────
// Access log
// ─────────────────────────────────────────────────────────────────────────────

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// AccessLog stores a request-scoped logger in the context (see LoggerFrom)
// and writes one line per request once the handler returns.
func AccessLog(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := log.With(
				slog.String("request_id", RequestIDFrom(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			rec := &statusRecorder{ResponseWriter: w}
			ctx := context.WithValue(r.Context(), loggerKey, reqLog)

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			reqLog.Info("request completed",
				slog.Int("status", status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// LoggerFrom returns the logger stored by AccessLog, falling back to the
// default logger outside a request.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// ─────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ─────────────────────────────────────────────────────────────────────────────

// Recoverer turns a panicking handler into a 500 instead of a dropped
// connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			LoggerFrom(r.Context()).Error("panic while serving request",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Response{Status: response.StatusError, Error: "internal server error"})
		}()

		next.ServeHTTP(w, r)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Method override
// ─────────────────────────────────────────────────────────────────────────────

// MethodOverride lets an HTML form, which can only POST, reach the PUT,
// PATCH and DELETE routes through a hidden _method field.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost &&
			strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			switch m := strings.ToUpper(r.PostFormValue("_method")); m {
			case http.MethodPut, http.MethodPatch, http.MethodDelete:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Acting user
// ─────────────────────────────────────────────────────────────────────────────

// UserResolver looks up the user named by the identity header.
type UserResolver interface {
	GetUserByID(ctx context.Context, id int64) (types.User, error)
}

// ActingUser reads the user id forwarded in header and, when it names an
// existing user, stores that id for ActingUserID. Missing, malformed or
// unknown ids leave the request anonymous.
func ActingUser(header string, users UserResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(header))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id < 1 {
				LoggerFrom(r.Context()).Debug("ignoring malformed user header",
					slog.String("value", raw))
				next.ServeHTTP(w, r)
				return
			}

			u, err := users.GetUserByID(r.Context(), id)
			if err != nil {
				LoggerFrom(r.Context()).Debug("acting user not resolved",
					slog.Int64("user_id", id),
					slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), actingUserKey, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActingUserID returns the resolved user id, or nil for anonymous
// requests.
func ActingUserID(ctx context.Context) *int64 {
	id, ok := ctx.Value(actingUserKey).(int64)
	if !ok {
		return nil
	}
	return &id
}
