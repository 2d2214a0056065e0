package criteria

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnresolvedSearchParam reports a search param whose field has neither
	// a manual override nor a registered operation kind.
	ErrUnresolvedSearchParam = errors.New("unresolved search param")

	// ErrUnsupportedOperationKind reports an operation kind absent from the registry.
	ErrUnsupportedOperationKind = errors.New("unsupported operation kind")

	// ErrDuplicateOverrideBinding reports two manual operations claiming the same field.
	ErrDuplicateOverrideBinding = errors.New("duplicate override binding")

	ErrInvalidPageAttribute = errors.New("invalid page attribute")
	ErrInvalidSortField     = errors.New("invalid sort field")

	// ErrNestingTooDeep reports a node tree deeper than the configured maximum.
	ErrNestingTooDeep = errors.New("nesting too deep")

	ErrFilterTooComplex = errors.New("filter too complex")
	ErrUnknownGlue      = errors.New("unknown glue operation")
	ErrInvalidNode      = errors.New("invalid node")

	// ErrInvalidOperationValue is returned by operation builders when the value
	// does not have the shape the operation kind requires.
	ErrInvalidOperationValue = errors.New("invalid operation value")
)

// ResolveError is returned when a search param cannot be turned into a predicate.
// It matches ErrUnresolvedSearchParam and unwraps to the underlying cause.
type ResolveError struct {
	Field string
	Kind  OperationKind
	Err   error
}

func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("resolve search param %q (kind %q)", e.Field, e.Kind)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() error { return e.Err }

func (e *ResolveError) Is(target error) bool {
	return target == ErrUnresolvedSearchParam
}
