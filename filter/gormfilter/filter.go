// Package gormfilter composes search params into gorm clause expressions.
package gormfilter

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/theplant/criteria"
	"github.com/theplant/criteria/filter"
)

type Options struct {
	// Table qualifies plain columns. Defaults to the statement's table.
	Table string
	// Fold lists the fields compared case-insensitively.
	Fold            map[string]bool
	FieldColumnHook func(next FieldColumnFunc) FieldColumnFunc
}

type Option func(*Options)

func WithTable(table string) Option {
	return func(o *Options) {
		o.Table = table
	}
}

// WithFold makes string comparisons on fields case-insensitive with LOWER().
func WithFold(fields ...string) Option {
	return func(o *Options) {
		if o.Fold == nil {
			o.Fold = make(map[string]bool, len(fields))
		}
		for _, field := range fields {
			o.Fold[field] = true
		}
	}
}

func newOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

const trueSQL = "1 = 1"

type combinator struct{}

// Combinator glues expressions with clause.And / clause.Or. Its neutral expression is 1 = 1.
var Combinator criteria.Combinator[clause.Expression] = combinator{}

func (combinator) And(preds ...clause.Expression) clause.Expression {
	return clause.And(preds...)
}

func (combinator) Or(preds ...clause.Expression) clause.Expression {
	return clause.Or(preds...)
}

func (combinator) True() clause.Expression {
	return clause.Expr{SQL: trueSQL}
}

func isTrue(expr clause.Expression) bool {
	e, ok := expr.(clause.Expr)
	return ok && e.SQL == trueSQL && len(e.Vars) == 0
}

type columnOperation func(out *FieldColumnOutput, fold bool, value any) (clause.Expression, error)

func operation(o *Options, op columnOperation) criteria.OperationFunc[clause.Expression] {
	return func(field string, value any) (clause.Expression, error) {
		out, err := o.fieldColumn(field)
		if err != nil {
			return nil, err
		}
		expr, err := op(out, o.Fold[field], value)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", field)
		}
		return expr, nil
	}
}

func compare(build func(column any, value any) clause.Expression) columnOperation {
	return func(out *FieldColumnOutput, fold bool, value any) (clause.Expression, error) {
		return build(out.Column, foldValue(value, fold)), nil
	}
}

func eq(out *FieldColumnOutput, fold bool, value any) (clause.Expression, error) {
	if out.JSONColumn != "" && !fold && value != nil {
		return datatypes.JSONQuery(out.JSONColumn).Equals(value, out.JSONKeys...), nil
	}
	return clause.Eq{Column: out.Column, Value: foldValue(value, fold)}, nil
}

func in(negate bool) columnOperation {
	return func(out *FieldColumnOutput, fold bool, value any) (clause.Expression, error) {
		values, err := filter.ToList(value)
		if err != nil {
			return nil, err
		}
		values = lo.Map(values, func(v any, _ int) any { return foldValue(v, fold) })
		var expr clause.Expression = clause.IN{Column: out.Column, Values: values}
		if negate {
			expr = clause.Not(expr)
		}
		return expr, nil
	}
}

func isNull(out *FieldColumnOutput, _ bool, value any) (clause.Expression, error) {
	isNull, ok := value.(bool)
	if !ok {
		return nil, errors.Wrapf(criteria.ErrInvalidOperationValue, "IsNull expects a bool, got %T", value)
	}
	// For JSON keys the column extracts text, which is NULL for a missing key and for a null value.
	if isNull {
		return clause.Eq{Column: out.Column, Value: nil}, nil
	}
	return clause.Neq{Column: out.Column, Value: nil}, nil
}

func like(format func(string) string) columnOperation {
	return func(out *FieldColumnOutput, fold bool, value any) (clause.Expression, error) {
		str, ok := value.(string)
		if !ok {
			return nil, errors.Wrapf(criteria.ErrInvalidOperationValue, "pattern expects a string, got %T", value)
		}
		if fold {
			str = strings.ToLower(str)
		}
		pattern := format(escapeLike(str))
		if out.JSONColumn != "" && !fold {
			return datatypes.JSONQuery(out.JSONColumn).Likes(pattern, out.JSONKeys...), nil
		}
		return clause.Like{Column: out.Column, Value: pattern}, nil
	}
}

// Operations returns the built-in operation set.
func Operations(opts ...Option) criteria.Operations[clause.Expression] {
	o := newOptions(opts)
	return criteria.Operations[clause.Expression]{
		criteria.OperationEq: operation(o, eq),
		criteria.OperationNeq: operation(o, compare(func(column, value any) clause.Expression {
			return clause.Neq{Column: column, Value: value}
		})),
		criteria.OperationLt: operation(o, compare(func(column, value any) clause.Expression {
			return clause.Lt{Column: column, Value: value}
		})),
		criteria.OperationLte: operation(o, compare(func(column, value any) clause.Expression {
			return clause.Lte{Column: column, Value: value}
		})),
		criteria.OperationGt: operation(o, compare(func(column, value any) clause.Expression {
			return clause.Gt{Column: column, Value: value}
		})),
		criteria.OperationGte: operation(o, compare(func(column, value any) clause.Expression {
			return clause.Gte{Column: column, Value: value}
		})),
		criteria.OperationIn:         operation(o, in(false)),
		criteria.OperationNotIn:      operation(o, in(true)),
		criteria.OperationIsNull:     operation(o, isNull),
		criteria.OperationContains:   operation(o, like(func(s string) string { return "%" + s + "%" })),
		criteria.OperationStartsWith: operation(o, like(func(s string) string { return s + "%" })),
		criteria.OperationEndsWith:   operation(o, like(func(s string) string { return "%" + s })),
	}
}

// NewService returns a service preloaded with the default Operations. Column options
// go through criteria.WithOperations(Operations(opts...)) given here.
func NewService(opts ...criteria.Option[clause.Expression]) (*criteria.Service[clause.Expression], error) {
	return criteria.New(Combinator, append([]criteria.Option[clause.Expression]{
		criteria.WithOperations(Operations()),
	}, opts...)...)
}

// Scope applies the filter, sort, offset and limit of q. Errors are added to the db.
// The same options used for Operations should be passed so that sort fields map to
// the same columns.
func Scope(q *criteria.Query[clause.Expression], opts ...Option) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if db == nil {
			return nil
		}
		if q == nil {
			return db
		}
		db, err := applyQuery(db, q, newOptions(opts))
		if err != nil {
			db.AddError(err)
		}
		return db
	}
}

func applyQuery(db *gorm.DB, q *criteria.Query[clause.Expression], o *Options) (*gorm.DB, error) {
	if q.Filter != nil && !isTrue(q.Filter) {
		db = db.Where(q.Filter)
	}

	if len(q.Sort) > 0 {
		orderBy, err := buildOrderBy(q.Sort, o)
		if err != nil {
			return db, err
		}
		db = db.Order(orderBy)
	}

	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db, nil
}

// buildOrderBy keeps plain columns as order by columns, so they merge with orders
// already on the statement. Once a sort key is an expression, the whole sort
// becomes one expression.
func buildOrderBy(orders []criteria.Order, o *Options) (clause.OrderBy, error) {
	columns := make([]clause.OrderByColumn, 0, len(orders))
	sqls := make([]string, 0, len(orders))
	vars := make([]any, 0, len(orders))
	plain := true
	for _, order := range orders {
		out, err := o.fieldColumn(order.Field)
		if err != nil {
			return clause.OrderBy{}, errors.Wrap(err, "sort")
		}
		if column, ok := out.Column.(clause.Column); ok {
			columns = append(columns, clause.OrderByColumn{Column: column, Desc: order.Desc()})
		} else {
			plain = false
		}
		direction := "ASC"
		if order.Desc() {
			direction = "DESC"
		}
		sqls = append(sqls, "? "+direction)
		vars = append(vars, out.Column)
	}
	if plain {
		return clause.OrderBy{Columns: columns}, nil
	}
	return clause.OrderBy{Expression: clause.Expr{SQL: strings.Join(sqls, ", "), Vars: vars}}, nil
}

func foldValue(value any, fold bool) any {
	if str, ok := value.(string); ok && fold {
		return strings.ToLower(str)
	}
	return value
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
