package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/meikuraledutech/pipeline"
)

// ParseRequest is the wire shape of a pipeline submission.
// Pointer fields let validation tell a missing id apart from an empty one.
// Unknown fields sent by the editor (type, position, data, ...) are ignored.
type ParseRequest struct {
	Nodes []NodeRequest `json:"nodes" yaml:"nodes" validate:"required,dive"`
	Edges []EdgeRequest `json:"edges" yaml:"edges" validate:"required,dive"`
}

// NodeRequest is one submitted node.
type NodeRequest struct {
	ID *string `json:"id" yaml:"id" validate:"required"`
}

// EdgeRequest is one submitted edge.
type EdgeRequest struct {
	Source *string `json:"source" yaml:"source" validate:"required"`
	Target *string `json:"target" yaml:"target" validate:"required"`
}

// FieldError describes one violated field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned by ParseRequest.Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Reason
	}
	return fmt.Sprintf("%s: %s", pipeline.ErrInvalidPipeline, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return pipeline.ErrInvalidPipeline }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the request shape: nodes and edges present, every node
// with an id, every edge with a source and a target.
func (r *ParseRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", pipeline.ErrInvalidPipeline, err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:  fieldPath(fe.Namespace()),
			Reason: reason(fe),
		})
	}
	return out
}

// fieldPath drops the struct name from a validator namespace:
// "ParseRequest.nodes[0].id" becomes "nodes[0].id".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// typeErrorField describes a JSON value of the wrong type, e.g. a number
// where a node id string was expected.
func typeErrorField(err error) (FieldError, bool) {
	var te *json.UnmarshalTypeError
	if !errors.As(err, &te) || te.Field == "" {
		return FieldError{}, false
	}
	return FieldError{
		Field:  jsonPath(te.Field),
		Reason: fmt.Sprintf("must be %s, got %s", jsonKind(te.Type), te.Value),
	}, true
}

// jsonPath turns a decoder field path into the validator form:
// "nodes.0.id" becomes "nodes[0].id".
func jsonPath(field string) string {
	var b strings.Builder
	for i, part := range strings.Split(field, ".") {
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "a value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Struct, reflect.Map:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	default:
		return "a number"
	}
}

func reason(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return "is required"
	}
	return "failed " + fe.Tag()
}

// Pipeline converts a validated request into the analyzer's data model.
func (r *ParseRequest) Pipeline() pipeline.Pipeline {
	p := pipeline.Pipeline{
		Nodes: make([]pipeline.Node, len(r.Nodes)),
		Edges: make([]pipeline.Edge, len(r.Edges)),
	}
	for i, n := range r.Nodes {
		p.Nodes[i] = pipeline.Node{ID: deref(n.ID)}
	}
	for i, e := range r.Edges {
		p.Edges[i] = pipeline.Edge{Source: deref(e.Source), Target: deref(e.Target)}
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
