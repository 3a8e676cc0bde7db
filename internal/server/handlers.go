package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/planner"
	"github.com/flowboardhq/flowboard/internal/recommend"
	"github.com/flowboardhq/flowboard/internal/store"
	"github.com/flowboardhq/flowboard/internal/task"
)

// -----------------------------------------------------------------------------
// Boards
// -----------------------------------------------------------------------------

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.store.ListBoards(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if boards == nil {
		boards = []*store.Board{}
	}
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var b store.Board
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, errors.NewValidationError("malformed board").WithCause(err))
		return
	}
	if err := s.store.CreateBoard(r.Context(), &b); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBoard(r.Context(), chi.URLParam(r, "boardID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBoard(r.Context(), chi.URLParam(r, "boardID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Tasks
// -----------------------------------------------------------------------------

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context(), r.URL.Query().Get("board"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Node{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t task.Node
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, errors.NewValidationError("malformed task").WithCause(err))
		return
	}
	t.Normalize()
	if err := s.store.CreateTask(r.Context(), &t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var t task.Node
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, errors.NewValidationError("malformed task").WithCause(err))
		return
	}
	t.ID = chi.URLParam(r, "taskID")
	t.Normalize()
	if err := s.store.UpdateTask(r.Context(), &t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Dependencies
// -----------------------------------------------------------------------------

type dependencyRequest struct {
	TaskID string              `json:"task_id"`
	Type   task.DependencyType `json:"type"`
}

// handleAddDependency runs the cycle check against the full in-memory
// graph before any persistence, mirroring the scheduler's pre-mutation
// contract: a rejected edge leaves both the graph and the store unchanged.
func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	fromID := chi.URLParam(r, "taskID")

	var req dependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("malformed dependency").WithCause(err))
		return
	}
	if req.Type == "" {
		req.Type = task.DepBlocks
	}

	g, err := s.buildGraph(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := g.AddEdge(fromID, req.TaskID, req.Type); err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.AddDependency(r.Context(), fromID, req.TaskID, req.Type); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"from": fromID,
		"to":   req.TaskID,
		"type": string(req.Type),
	})
}

func (s *Server) handleRemoveDependency(w http.ResponseWriter, r *http.Request) {
	err := s.store.RemoveDependency(r.Context(),
		chi.URLParam(r, "taskID"), chi.URLParam(r, "depID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Notes and tags
// -----------------------------------------------------------------------------

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []*store.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("malformed note").WithCause(err))
		return
	}
	note, err := s.store.AddNote(r.Context(), chi.URLParam(r, "taskID"), req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	err := s.store.AddTag(r.Context(), chi.URLParam(r, "taskID"), chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	err := s.store.RemoveTag(r.Context(), chi.URLParam(r, "taskID"), chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Scheduling
// -----------------------------------------------------------------------------

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	g, err := s.buildGraphForBoard(r, r.URL.Query().Get("board"))
	if err != nil {
		writeError(w, err)
		return
	}
	plan := planner.Compute(g, g.CompletedSet())
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	g, err := s.buildGraph(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	filters := recommend.Filters{
		Assignee: q.Get("assignee"),
		Status:   task.Status(q.Get("status")),
		Board:    q.Get("board"),
	}

	rec, err := s.engine.RecommendNext(g, g.CompletedSet(), filters, s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// buildGraph loads every task and assembles the dependency graph.
func (s *Server) buildGraph(r *http.Request) (*graph.Graph, error) {
	return s.buildGraphForBoard(r, "")
}

func (s *Server) buildGraphForBoard(r *http.Request, boardID string) (*graph.Graph, error) {
	tasks, err := s.store.ListTasks(r.Context(), boardID)
	if err != nil {
		return nil, err
	}
	return graph.Build(tasks)
}
