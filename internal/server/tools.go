package server

import (
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/planner"
	"github.com/flowboardhq/flowboard/internal/recommend"
	"github.com/flowboardhq/flowboard/internal/task"
)

// toolResponse wraps a tool call result with the tool's name echoed back.
type toolResponse struct {
	Tool   string `json:"tool"`
	Result any    `json:"result"`
}

// handleToolCall is an MCP-style dispatch endpoint. The request body is
// {"name": "...", "arguments": {...}}; arguments are loosely typed and read
// with gjson before being validated into typed calls.
func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.NewValidationError("unreadable request body").WithCause(err))
		return
	}
	if !gjson.ValidBytes(body) {
		writeError(w, errors.NewValidationError("tool call is not valid JSON").
			WithCause(errors.ErrValidationFailed))
		return
	}

	doc := gjson.ParseBytes(body)
	name := doc.Get("name").String()
	args := doc.Get("arguments")

	var result any
	switch name {
	case "plan_waves":
		result, err = s.toolPlanWaves(r, args)
	case "recommend_next":
		result, err = s.toolRecommendNext(r, args)
	case "add_dependency":
		result, err = s.toolAddDependency(r, args)
	case "list_tasks":
		result, err = s.toolListTasks(r, args)
	default:
		err = errors.NewValidationError("unknown tool").
			WithField("name").
			WithValue(name).
			WithCause(errors.ErrValidationFailed)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toolResponse{Tool: name, Result: result})
}

func (s *Server) toolPlanWaves(r *http.Request, args gjson.Result) (any, error) {
	g, err := s.buildGraphForBoard(r, args.Get("board").String())
	if err != nil {
		return nil, err
	}
	return planner.Compute(g, g.CompletedSet()), nil
}

func (s *Server) toolRecommendNext(r *http.Request, args gjson.Result) (any, error) {
	g, err := s.buildGraph(r)
	if err != nil {
		return nil, err
	}

	filters := recommend.Filters{
		Assignee: args.Get("assignee").String(),
		Status:   task.Status(args.Get("status").String()),
		Board:    args.Get("board").String(),
	}

	if args.Get("all").Bool() {
		return s.engine.RankAll(g, g.CompletedSet(), filters, s.now())
	}
	return s.engine.RecommendNext(g, g.CompletedSet(), filters, s.now())
}

func (s *Server) toolAddDependency(r *http.Request, args gjson.Result) (any, error) {
	fromID := args.Get("from").String()
	toID := args.Get("to").String()
	typ := task.DependencyType(args.Get("type").String())
	if typ == "" {
		typ = task.DepBlocks
	}
	if fromID == "" || toID == "" {
		return nil, errors.NewValidationError("add_dependency requires from and to").
			WithCause(errors.ErrValidationFailed)
	}

	g, err := s.buildGraph(r)
	if err != nil {
		return nil, err
	}
	if err := g.AddEdge(fromID, toID, typ); err != nil {
		return nil, err
	}
	if err := s.store.AddDependency(r.Context(), fromID, toID, typ); err != nil {
		return nil, err
	}

	return map[string]string{"from": fromID, "to": toID, "type": string(typ)}, nil
}

func (s *Server) toolListTasks(r *http.Request, args gjson.Result) (any, error) {
	tasks, err := s.store.ListTasks(r.Context(), args.Get("board").String())
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*task.Node{}
	}
	return tasks, nil
}
