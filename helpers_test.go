package criteria_test

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/theplant/criteria"
)

// expr is a tiny evaluable predicate used to check composition semantics.
type expr struct {
	op       string
	field    string
	value    any
	children []*expr
}

func (e *expr) eval(rec map[string]any) bool {
	switch e.op {
	case "true":
		return true
	case "and":
		for _, c := range e.children {
			if !c.eval(rec) {
				return false
			}
		}
		return true
	case "or":
		for _, c := range e.children {
			if c.eval(rec) {
				return true
			}
		}
		return false
	case "eq":
		return rec[e.field] == e.value
	case "gt":
		v, ok := rec[e.field].(int)
		return ok && v > e.value.(int)
	case "sentinel":
		return false
	}
	panic("unknown op " + e.op)
}

func (e *expr) String() string {
	switch e.op {
	case "true", "sentinel":
		return e.op
	case "and", "or":
		parts := make([]string, len(e.children))
		for i, c := range e.children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(e.op)+" ") + ")"
	}
	return fmt.Sprintf("%s %s %v", e.field, e.op, e.value)
}

type exprCombinator struct{}

func (exprCombinator) And(preds ...*expr) *expr { return &expr{op: "and", children: preds} }
func (exprCombinator) Or(preds ...*expr) *expr  { return &expr{op: "or", children: preds} }
func (exprCombinator) True() *expr              { return &expr{op: "true"} }

var exprOperations = criteria.Operations[*expr]{
	criteria.OperationEq: func(field string, value any) (*expr, error) {
		return &expr{op: "eq", field: field, value: value}, nil
	},
	criteria.OperationGt: func(field string, value any) (*expr, error) {
		if _, ok := value.(int); !ok {
			return nil, errors.Wrapf(criteria.ErrInvalidOperationValue, "gt expects int, got %T", value)
		}
		return &expr{op: "gt", field: field, value: value}, nil
	},
}

func newExprService(opts ...criteria.Option[*expr]) (*criteria.Service[*expr], error) {
	opts = append([]criteria.Option[*expr]{criteria.WithOperations(exprOperations)}, opts...)
	return criteria.New[*expr](exprCombinator{}, opts...)
}

var records = []map[string]any{
	{"name": "alice", "age": 31, "status": "active"},
	{"name": "bob", "age": 17, "status": "active"},
	{"name": "carol", "age": 45, "status": "banned"},
	{"name": "dave", "age": 22, "status": "pending"},
	{"name": "erin"},
}

func permutations[T any](items []T) [][]T {
	if len(items) <= 1 {
		return [][]T{append([]T(nil), items...)}
	}
	var out [][]T
	for i := range items {
		rest := make([]T, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]T{items[i]}, p...))
		}
	}
	return out
}
