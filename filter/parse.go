package filter

import (
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/theplant/criteria"
)

// TagKey is the tag key used to marshal filters to map[string]any, so that
// struct field names are used as keys.
const TagKey = "~~~filter~~~"

var jsoniterForFilter = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	TagKey:                 TagKey,
}.Froze()

// ToMap converts a filter struct to a map[string]any keyed by struct field names.
func ToMap(v any) (map[string]any, error) {
	if lo.IsNil(v) {
		return nil, nil
	}
	data, err := jsoniterForFilter.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal filter")
	}
	var filterMap map[string]any
	if err := jsoniterForFilter.Unmarshal(data, &filterMap); err != nil {
		return nil, errors.Wrap(err, "unmarshal filter to map")
	}
	PruneMap(filterMap)
	return filterMap, nil
}

// PruneMap recursively removes nil values, empty slices, and empty nested maps.
func PruneMap(m map[string]any) {
	for k, v := range m {
		if v == nil {
			delete(m, k)
			continue
		}

		if nestedMap, ok := v.(map[string]any); ok {
			PruneMap(nestedMap)
			if len(nestedMap) == 0 {
				delete(m, k)
			}
			continue
		}

		if slice, ok := v.([]any); ok {
			if len(slice) == 0 {
				delete(m, k)
				continue
			}
			for _, item := range slice {
				if nestedMap, ok := item.(map[string]any); ok {
					PruneMap(nestedMap)
				}
			}
		}
	}
}

type ParseOptions struct {
	fieldName func(string) string
}

type ParseOption func(*ParseOptions)

// WithFieldName rewrites every field key before it becomes a search param name,
// e.g. lo.CamelCase to match document keys.
func WithFieldName(fn func(string) string) ParseOption {
	return func(o *ParseOptions) {
		o.fieldName = fn
	}
}

// Parse converts a filter struct into a node tree. See ParseMap.
func Parse(v any, opts ...ParseOption) (*criteria.Node, error) {
	filterMap, err := ToMap(v)
	if err != nil {
		return nil, err
	}
	return ParseMap(filterMap, opts...)
}

// ParseMap converts a filter map such as
//
//	{"Age": {"Gte": 18}, "Or": [{"Name": {"Eq": "a"}}, {"Name": {"Eq": "b"}}]}
//
// into a node tree. Sibling keys are glued with AND, keys are visited in
// lexical order and operator keys are normalized to criteria operation kinds.
// A nil or empty map yields nil, which builds to the neutral predicate.
func ParseMap(filterMap map[string]any, opts ...ParseOption) (*criteria.Node, error) {
	options := &ParseOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if len(filterMap) == 0 {
		return nil, nil
	}
	return parseMap(filterMap, nil, options)
}

func parseMap(m map[string]any, path []string, options *ParseOptions) (*criteria.Node, error) {
	keys := lo.Keys(m)
	sort.Strings(keys)

	children := make([]*criteria.Node, 0, len(keys))
	for _, key := range keys {
		value := m[key]
		if value == nil {
			continue
		}
		keyPath := strings.Join(append(path, key), ".")

		switch strings.ToLower(key) {
		case "and", "or":
			glue := criteria.GlueAnd
			if strings.EqualFold(key, "or") {
				glue = criteria.GlueOr
			}
			list, ok := value.([]any)
			if !ok {
				return nil, errors.Errorf("logical filter %s should be []any, got %T", keyPath, value)
			}
			group := criteria.Group(glue)
			for i, item := range list {
				sub, ok := item.(map[string]any)
				if !ok {
					return nil, errors.Errorf("logical filter %s item at index %d should be map[string]any, got %T", keyPath, i, item)
				}
				node, err := parseMap(sub, append(path, key), options)
				if err != nil {
					return nil, errors.Wrapf(err, "index %d", i)
				}
				group.Children = append(group.Children, node)
			}
			children = append(children, group)

		case "not":
			return nil, errors.Errorf("logical filter %s is not supported", keyPath)

		default:
			ops, ok := value.(map[string]any)
			if !ok {
				return nil, errors.Errorf("field %s value should be map[string]any, got %T", keyPath, value)
			}
			fieldNodes, err := parseField(key, ops, options)
			if err != nil {
				return nil, err
			}
			children = append(children, fieldNodes...)
		}
	}

	return criteria.Group(criteria.GlueAnd, children...), nil
}

func parseField(field string, ops map[string]any, options *ParseOptions) ([]*criteria.Node, error) {
	name := field
	if options.fieldName != nil {
		name = options.fieldName(field)
	}

	opKeys := lo.Keys(ops)
	sort.Strings(opKeys)

	nodes := make([]*criteria.Node, 0, len(opKeys))
	for _, op := range opKeys {
		value := ops[op]
		if value == nil {
			continue
		}
		kind, err := ParseOperationKind(op)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", field)
		}
		nodes = append(nodes, criteria.Leaf(criteria.SearchParam{
			Name:  name,
			Value: value,
			Kind:  kind,
		}))
	}
	return nodes, nil
}

var operationKinds = lo.SliceToMap([]criteria.OperationKind{
	criteria.OperationEq,
	criteria.OperationNeq,
	criteria.OperationLt,
	criteria.OperationLte,
	criteria.OperationGt,
	criteria.OperationGte,
	criteria.OperationIn,
	criteria.OperationNotIn,
	criteria.OperationIsNull,
	criteria.OperationContains,
	criteria.OperationStartsWith,
	criteria.OperationEndsWith,
}, func(kind criteria.OperationKind) (string, criteria.OperationKind) {
	return strings.ToLower(string(kind)), kind
})

// ParseOperationKind normalizes an operator key such as "gte", "not_in" or "NotIn"
// to its operation kind. Unknown keys are passed through in PascalCase so that
// custom kinds registered on a service keep working.
func ParseOperationKind(op string) (criteria.OperationKind, error) {
	if strings.TrimSpace(op) == "" {
		return "", errors.New("empty operator")
	}
	normalized := lo.PascalCase(op)
	if kind, ok := operationKinds[strings.ToLower(normalized)]; ok {
		return kind, nil
	}
	return criteria.OperationKind(normalized), nil
}
