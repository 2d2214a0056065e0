package criteria

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ManualOperationProvider builds predicates for the single field it owns,
// bypassing the operation registry.
type ManualOperationProvider[P any] interface {
	OperationProvider[P]
	FieldName() string
}

type manualOperation[P any] struct {
	field string
	build func(param SearchParam) (P, error)
}

func (m *manualOperation[P]) FieldName() string { return m.field }

func (m *manualOperation[P]) BuildOperation(param SearchParam) (P, error) {
	return m.build(param)
}

// NewManualOperation returns a ManualOperationProvider owning field.
func NewManualOperation[P any](field string, build func(param SearchParam) (P, error)) ManualOperationProvider[P] {
	if build == nil {
		panic("build must be set")
	}
	return &manualOperation[P]{field: field, build: build}
}

// OverrideRegistry maps field names to manual operation providers.
type OverrideRegistry[P any] struct {
	byField map[string]ManualOperationProvider[P]
}

// NewOverrideRegistry fails with ErrDuplicateOverrideBinding if two providers
// claim the same field.
func NewOverrideRegistry[P any](providers ...ManualOperationProvider[P]) (*OverrideRegistry[P], error) {
	for i, p := range providers {
		if lo.IsNil(p) {
			return nil, errors.Errorf("manual operation provider at index %d is nil", i)
		}
		if p.FieldName() == "" {
			return nil, errors.Errorf("manual operation provider at index %d has empty field name", i)
		}
	}

	dups := lo.FindDuplicatesBy(providers, func(p ManualOperationProvider[P]) string {
		return p.FieldName()
	})
	if len(dups) > 0 {
		fields := lo.Map(dups, func(p ManualOperationProvider[P], _ int) string {
			return p.FieldName()
		})
		sort.Strings(fields)
		return nil, errors.Wrapf(ErrDuplicateOverrideBinding, "fields %v", fields)
	}

	return &OverrideRegistry[P]{
		byField: lo.KeyBy(providers, func(p ManualOperationProvider[P]) string {
			return p.FieldName()
		}),
	}, nil
}

func (r *OverrideRegistry[P]) ByField(name string) (ManualOperationProvider[P], bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byField[name]
	return p, ok
}

// Fields returns the overridden field names in lexical order.
func (r *OverrideRegistry[P]) Fields() []string {
	if r == nil {
		return nil
	}
	fields := lo.Keys(r.byField)
	sort.Strings(fields)
	return fields
}
