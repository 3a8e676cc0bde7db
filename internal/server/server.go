// Package server exposes Flowboard's boards, tasks, scheduling plans, and
// recommendations over a REST API. Scheduling endpoints build an in-memory
// graph from the store per request; nothing in the scheduler core holds
// server state.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowboardhq/flowboard/internal/logging"
	"github.com/flowboardhq/flowboard/internal/recommend"
	"github.com/flowboardhq/flowboard/internal/store"
)

// Server holds the API's collaborators.
type Server struct {
	store  store.Store
	engine *recommend.Engine
	log    *logging.Logger

	now func() time.Time
}

// New creates a Server. A nil logger disables request logging.
func New(st store.Store, engine *recommend.Engine, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Server{
		store:  st,
		engine: engine,
		log:    log,
		now:    time.Now,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/boards", func(r chi.Router) {
		r.Get("/", s.handleListBoards)
		r.Post("/", s.handleCreateBoard)
		r.Get("/{boardID}", s.handleGetBoard)
		r.Delete("/{boardID}", s.handleDeleteBoard)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleCreateTask)
		r.Get("/{taskID}", s.handleGetTask)
		r.Put("/{taskID}", s.handleUpdateTask)
		r.Delete("/{taskID}", s.handleDeleteTask)

		r.Post("/{taskID}/dependencies", s.handleAddDependency)
		r.Delete("/{taskID}/dependencies/{depID}", s.handleRemoveDependency)

		r.Get("/{taskID}/notes", s.handleListNotes)
		r.Post("/{taskID}/notes", s.handleAddNote)

		r.Get("/{taskID}/tags", s.handleListTags)
		r.Put("/{taskID}/tags/{tag}", s.handleAddTag)
		r.Delete("/{taskID}/tags/{tag}", s.handleRemoveTag)
	})

	r.Get("/plan", s.handlePlan)
	r.Get("/next", s.handleNext)
	r.Post("/tools/call", s.handleToolCall)

	return r
}

// ListenAndServe runs the HTTP server until ctx is canceled, then shuts
// down gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
