// Package protofilter parses filters carried in protobuf messages, typically a
// google.protobuf.Struct in a search request, into criteria node trees.
package protofilter

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/theplant/criteria"
	"github.com/theplant/criteria/filter"
)

// ToMap converts a proto message to a pruned filter map.
// protojson takes care of well-known types: timestamps become RFC 3339 strings.
func ToMap(msg proto.Message) (map[string]any, error) {
	if lo.IsNil(msg) {
		return nil, nil
	}

	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal proto to json")
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal json to map")
	}

	filter.PruneMap(m)
	return m, nil
}

// Parse converts a proto filter message into a node tree. See filter.ParseMap.
func Parse(msg proto.Message, opts ...filter.ParseOption) (*criteria.Node, error) {
	m, err := ToMap(msg)
	if err != nil {
		return nil, err
	}
	return filter.ParseMap(m, opts...)
}

// ParseOrders parses a list whose items are either sort expressions
// ("-createdAt") or objects like {"field": "createdAt", "direction": "DESC"}.
func ParseOrders(list *structpb.ListValue) ([]criteria.Order, error) {
	var orders []criteria.Order
	for i, v := range list.GetValues() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			parsed, err := criteria.ParseSortBy(kind.StringValue)
			if err != nil {
				return nil, errors.Wrapf(err, "order at index %d", i)
			}
			orders = append(orders, parsed...)
		case *structpb.Value_StructValue:
			fields := kind.StructValue.GetFields()
			o := criteria.Order{
				Field:     fields["field"].GetStringValue(),
				Direction: criteria.OrderDirection(strings.ToUpper(fields["direction"].GetStringValue())),
			}
			if o.Field == "" {
				return nil, errors.Wrapf(criteria.ErrInvalidSortField, "order at index %d has no field", i)
			}
			orders = append(orders, o)
		default:
			return nil, errors.Errorf("order at index %d should be a string or an object, got %T", i, kind)
		}
	}
	return orders, nil
}
