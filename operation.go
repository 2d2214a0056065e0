package criteria

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// OperationFunc converts a field name and value into a single predicate.
type OperationFunc[P any] func(field string, value any) (P, error)

// Operations maps operation kinds to their builders.
type Operations[P any] map[OperationKind]OperationFunc[P]

// OperationProvider produces a predicate for a search param.
type OperationProvider[P any] interface {
	BuildOperation(param SearchParam) (P, error)
}

// OperationRegistry resolves search params by their operation kind.
// It is read-only after construction and safe for concurrent use.
type OperationRegistry[P any] struct {
	ops Operations[P]
}

var _ OperationProvider[any] = (*OperationRegistry[any])(nil)

func NewOperationRegistry[P any](ops Operations[P]) *OperationRegistry[P] {
	return &OperationRegistry[P]{
		ops: lo.PickBy(ops, func(_ OperationKind, fn OperationFunc[P]) bool {
			return fn != nil
		}),
	}
}

// Resolve builds the predicate for param using the operation registered for param.Kind.
func (r *OperationRegistry[P]) Resolve(param SearchParam) (P, error) {
	fn, ok := r.ops[param.Kind]
	if !ok {
		var zero P
		return zero, errors.Wrapf(ErrUnsupportedOperationKind, "kind %q for field %q", param.Kind, param.Name)
	}
	return fn(param.Name, param.Value)
}

func (r *OperationRegistry[P]) BuildOperation(param SearchParam) (P, error) {
	return r.Resolve(param)
}

// Has reports whether kind is registered.
func (r *OperationRegistry[P]) Has(kind OperationKind) bool {
	_, ok := r.ops[kind]
	return ok
}

// Kinds returns the registered kinds in lexical order.
func (r *OperationRegistry[P]) Kinds() []OperationKind {
	kinds := lo.Keys(r.ops)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
