package filter

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/theplant/criteria"
)

// ToList converts an In / NotIn operand to []any. Any slice or array is accepted.
func ToList(value any) ([]any, error) {
	if values, ok := value.([]any); ok {
		return values, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.Wrapf(criteria.ErrInvalidOperationValue, "expects a list, got %T", value)
	}
	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, nil
}
