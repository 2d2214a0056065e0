package gormfilter

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm/clause"

	"github.com/theplant/criteria/internal/hook"
)

type FieldColumnInput struct {
	// FieldName is the search param or sort field name.
	FieldName string
	// Fold is set when the field compares case-insensitively.
	Fold    bool
	Options *Options
}

type FieldColumnOutput struct {
	// Column is written where gorm expects a column: a clause.Column or a clause.Expr.
	Column any
	// JSONColumn and JSONKeys are set when the field addresses a key inside a JSON
	// document column. Eq and pattern operations then use datatypes.JSONQuery.
	JSONColumn string
	JSONKeys   []string
}

type FieldColumnFunc func(input *FieldColumnInput) (*FieldColumnOutput, error)

// DefaultFieldColumn maps "createdAt" to the snake_case column "created_at" of
// the current table and "profile.address.city" to the "city" key path inside
// the JSON column "profile".
func DefaultFieldColumn(input *FieldColumnInput) (*FieldColumnOutput, error) {
	parts := strings.Split(input.FieldName, ".")
	if lo.Contains(parts, "") {
		return nil, errors.Errorf("invalid field name %q", input.FieldName)
	}

	table := clause.CurrentTable
	if input.Options != nil && input.Options.Table != "" {
		table = input.Options.Table
	}
	column := clause.Column{Table: table, Name: lo.SnakeCase(parts[0])}

	if len(parts) == 1 {
		if input.Fold {
			return &FieldColumnOutput{Column: clause.Expr{SQL: "LOWER(?)", Vars: []any{column}}}, nil
		}
		return &FieldColumnOutput{Column: column}, nil
	}

	keys := parts[1:]
	sql := "json_extract_path_text(?::json" + strings.Repeat(", ?", len(keys)) + ")"
	if input.Fold {
		sql = "LOWER(" + sql + ")"
	}
	return &FieldColumnOutput{
		Column:     clause.Expr{SQL: sql, Vars: append([]any{column}, lo.ToAnySlice(keys)...)},
		JSONColumn: column.Name,
		JSONKeys:   keys,
	}, nil
}

// WithFieldColumnHook wraps the field to column mapping, e.g. to point a field at a
// computed expression. The first hook is the outermost.
func WithFieldColumnHook(hooks ...func(next FieldColumnFunc) FieldColumnFunc) Option {
	return func(o *Options) {
		o.FieldColumnHook = hook.Chain(append([]func(next FieldColumnFunc) FieldColumnFunc{o.FieldColumnHook}, hooks...)...)
	}
}

func (o *Options) fieldColumn(field string) (*FieldColumnOutput, error) {
	input := &FieldColumnInput{
		FieldName: field,
		Fold:      o.Fold[field],
		Options:   o,
	}
	fn := FieldColumnFunc(DefaultFieldColumn)
	if o.FieldColumnHook != nil {
		fn = o.FieldColumnHook(fn)
	}
	out, err := fn(input)
	if err != nil {
		return nil, errors.Wrapf(err, "column for field %q", field)
	}
	if out == nil || out.Column == nil {
		return nil, errors.Errorf("no column for field %q", field)
	}
	return out, nil
}
