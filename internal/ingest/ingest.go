// Package ingest loads task sets from JSON or YAML files and validates
// them at the boundary, so the scheduler packages can assume well-formed
// input. JSON documents are checked against an embedded JSON Schema before
// decoding; YAML documents are decoded and run through the same
// normalization and validation pass.
package ingest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/task"
)

//go:embed schema.json
var taskSetSchema string

// TaskSet is the on-disk import document: an optional default board and
// the task records themselves.
type TaskSet struct {
	// Board is the default board for tasks that do not name one.
	Board string `json:"board,omitempty" yaml:"board,omitempty"`

	// Tasks are the imported task records.
	Tasks []*task.Node `json:"tasks" yaml:"tasks"`
}

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("taskset.json", strings.NewReader(taskSetSchema)); err != nil {
		panic(fmt.Sprintf("ingest: add schema resource: %v", err))
	}
	schema, err := compiler.Compile("taskset.json")
	if err != nil {
		panic(fmt.Sprintf("ingest: compile schema: %v", err))
	}
	return schema
}

// LoadFile reads a task set from path, dispatching on the file extension:
// .json for JSON, .yaml or .yml for YAML.
func LoadFile(path string) (*TaskSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task set: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, errors.NewValidationError("unsupported task set format").
			WithField("path").
			WithValue(path).
			WithCause(errors.ErrValidationFailed)
	}
}

// ParseJSON validates data against the task set schema, decodes it, and
// normalizes and validates every task.
func ParseJSON(data []byte) (*TaskSet, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewValidationError("task set is not valid JSON").
			WithCause(err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		return nil, schemaError(err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var set TaskSet
	if err := dec.Decode(&set); err != nil {
		return nil, errors.NewValidationError("task set does not decode").
			WithCause(err)
	}

	if err := finalize(&set); err != nil {
		return nil, err
	}
	return &set, nil
}

// ParseYAML decodes a YAML task set and normalizes and validates every
// task. YAML input is not schema-checked; the validation pass covers the
// same constraints.
func ParseYAML(data []byte) (*TaskSet, error) {
	var set TaskSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, errors.NewValidationError("task set is not valid YAML").
			WithCause(err)
	}

	if err := finalize(&set); err != nil {
		return nil, err
	}
	return &set, nil
}

// finalize applies the default board, fills optional fields, and validates
// each task. Duplicate IDs within one document are rejected here because
// the graph would otherwise fail later with less context.
func finalize(set *TaskSet) error {
	if len(set.Tasks) == 0 {
		return errors.NewValidationError("task set contains no tasks").
			WithCause(errors.ErrValidationFailed)
	}

	seen := make(map[string]struct{}, len(set.Tasks))
	for _, t := range set.Tasks {
		if t == nil {
			return errors.NewValidationError("task set contains a null task").
				WithCause(errors.ErrValidationFailed)
		}
		if t.BoardID == "" {
			t.BoardID = set.Board
		}
		t.Normalize()
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.ID]; dup {
			return errors.NewValidationError("duplicate task ID in task set").
				WithField("id").
				WithValue(t.ID).
				WithCause(errors.ErrDuplicateID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// schemaError converts a jsonschema validation failure into a
// ValidationError pointing at the first leaf cause.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return errors.NewValidationError("task set failed schema validation").
			WithCause(err)
	}

	leaf := firstLeaf(ve)
	return errors.NewValidationError(leaf.Message).
		WithField(pointerToPath(leaf.InstanceLocation)).
		WithCause(errors.ErrValidationFailed)
}

// firstLeaf walks to the first cause with no children, which carries the
// most specific message.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// pointerToPath renders a JSON pointer like /tasks/0/priority as
// tasks[0].priority for error messages.
func pointerToPath(pointer string) string {
	if pointer == "" || pointer == "/" {
		return "(document root)"
	}

	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	var sb strings.Builder
	for _, part := range parts {
		if isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
