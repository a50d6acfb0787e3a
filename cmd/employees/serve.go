package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/employees-app/internal/config"
	service "github.com/aanand-mishra/employees-app/internal/employee"
	"github.com/aanand-mishra/employees-app/internal/http/handlers/employee"
	"github.com/aanand-mishra/employees-app/internal/http/middleware"
	"github.com/aanand-mishra/employees-app/internal/storage"
	"github.com/aanand-mishra/employees-app/internal/view"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Start the HTTP server and block until SIGINT or SIGTERM.

In-flight requests get http_server.shutdown_timeout to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting employees",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
	)

	store, err := openStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	defer store.Close()

	log.Info("storage initialised")

	handler, err := newHandler(cfg, store, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// newHandler registers every route and wraps the router in the middleware
// chain.
//
// Route table:
//
//	GET    /employees              list, filter, sort, paginate
//	GET    /employees/create       empty record form
//	POST   /employees              create
//	GET    /employees/{id}/edit    pre-filled record form
//	PUT    /employees/{id}         update (PATCH too)
//	DELETE /employees/{id}         delete
//
// HTML forms reach PUT and DELETE by POSTing a _method field.
func newHandler(cfg *config.Config, store storage.Storage, log *slog.Logger) (http.Handler, error) {
	views, err := view.New()
	if err != nil {
		return nil, err
	}
	svc := service.NewService(store)

	router := http.NewServeMux()

	router.HandleFunc("GET /employees", employee.Index(svc, views))
	router.HandleFunc("GET /employees/create", employee.CreateForm(views))
	router.HandleFunc("POST /employees", employee.Store(svc, views))
	router.HandleFunc("GET /employees/{id}/edit", employee.EditForm(svc, views))
	router.HandleFunc("PUT /employees/{id}", employee.Update(svc, views))
	router.HandleFunc("PATCH /employees/{id}", employee.Update(svc, views))
	router.HandleFunc("DELETE /employees/{id}", employee.Destroy(svc, views))

	router.Handle("GET /static/", view.Static())
	router.HandleFunc("GET /healthcheck", healthcheck)
	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/employees", http.StatusFound)
	})

	return middleware.Chain(router,
		middleware.Recoverer,
		middleware.RequestID,
		middleware.AccessLog(log),
		middleware.MethodOverride,
		middleware.ActingUser(cfg.Auth.UserHeader, store),
	), nil
}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
