// Package docfilter composes search params into Mongo-style document filters
// such as {"age": {"$gt": 30}} and evaluates them over raw JSON documents.
package docfilter

import (
	"regexp"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/theplant/criteria"
	"github.com/theplant/criteria/filter"
)

// Filter is a document filter. An empty Filter matches every document.
type Filter map[string]any

const (
	OpAnd   = "$and"
	OpOr    = "$or"
	OpEq    = "$eq"
	OpNe    = "$ne"
	OpGt    = "$gt"
	OpGte   = "$gte"
	OpLt    = "$lt"
	OpLte   = "$lte"
	OpIn    = "$in"
	OpNin   = "$nin"
	OpRegex = "$regex"
)

var jsoniterForDoc = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

func JSONMarshal(v any) ([]byte, error) {
	b, err := jsoniterForDoc.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal to JSON")
	}
	return b, nil
}

type combinator struct{}

// Combinator glues filters with $and / $or. Its neutral filter is {}.
var Combinator criteria.Combinator[Filter] = combinator{}

func (combinator) And(preds ...Filter) Filter {
	return Filter{OpAnd: preds}
}

func (combinator) Or(preds ...Filter) Filter {
	return Filter{OpOr: preds}
}

func (combinator) True() Filter {
	return Filter{}
}

func compare(op string) criteria.OperationFunc[Filter] {
	return func(field string, value any) (Filter, error) {
		return Filter{field: map[string]any{op: value}}, nil
	}
}

func list(op string) criteria.OperationFunc[Filter] {
	return func(field string, value any) (Filter, error) {
		values, err := filter.ToList(value)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", field)
		}
		return Filter{field: map[string]any{op: values}}, nil
	}
}

func pattern(format func(string) string) criteria.OperationFunc[Filter] {
	return func(field string, value any) (Filter, error) {
		s, ok := value.(string)
		if !ok {
			return nil, errors.Wrapf(criteria.ErrInvalidOperationValue, "field %q expects a string, got %T", field, value)
		}
		return Filter{field: map[string]any{OpRegex: format(regexp.QuoteMeta(s))}}, nil
	}
}

// Operations returns the built-in operation set. Contains, StartsWith and
// EndsWith match literally through an escaped $regex.
func Operations() criteria.Operations[Filter] {
	return criteria.Operations[Filter]{
		criteria.OperationEq:    compare(OpEq),
		criteria.OperationNeq:   compare(OpNe),
		criteria.OperationLt:    compare(OpLt),
		criteria.OperationLte:   compare(OpLte),
		criteria.OperationGt:    compare(OpGt),
		criteria.OperationGte:   compare(OpGte),
		criteria.OperationIn:    list(OpIn),
		criteria.OperationNotIn: list(OpNin),
		criteria.OperationIsNull: func(field string, value any) (Filter, error) {
			isNull, ok := value.(bool)
			if !ok {
				return nil, errors.Wrapf(criteria.ErrInvalidOperationValue, "field %q expects a bool, got %T", field, value)
			}
			op := OpNe
			if isNull {
				op = OpEq
			}
			return Filter{field: map[string]any{op: nil}}, nil
		},
		criteria.OperationContains:   pattern(func(s string) string { return s }),
		criteria.OperationStartsWith: pattern(func(s string) string { return "^" + s }),
		criteria.OperationEndsWith:   pattern(func(s string) string { return s + "$" }),
	}
}

// NewService returns a service preloaded with Operations. Options given here
// are applied after, so they can replace built-in kinds.
func NewService(opts ...criteria.Option[Filter]) (*criteria.Service[Filter], error) {
	return criteria.New(Combinator, append([]criteria.Option[Filter]{
		criteria.WithOperations(Operations()),
	}, opts...)...)
}
