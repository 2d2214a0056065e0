package docfilter

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/theplant/criteria"
)

// Find applies the filter, sort, offset and limit of q to docs.
// Sorting is stable and a zero limit means no limit. docs is not modified.
func Find(docs [][]byte, q *criteria.Query[Filter]) ([][]byte, error) {
	if q == nil {
		return slices.Clone(docs), nil
	}
	if q.Offset < 0 {
		return nil, errors.Wrapf(criteria.ErrInvalidPageAttribute, "offset must be a non-negative integer, got %d", q.Offset)
	}
	if q.Limit < 0 {
		return nil, errors.Wrapf(criteria.ErrInvalidPageAttribute, "limit must be a non-negative integer, got %d", q.Limit)
	}

	var matched [][]byte
	for i, doc := range docs {
		ok, err := Match(doc, q.Filter)
		if err != nil {
			return nil, errors.Wrapf(err, "document at index %d", i)
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	if len(q.Sort) > 0 {
		slices.SortStableFunc(matched, func(a, b []byte) int {
			for _, order := range q.Sort {
				c := compareValues(gjson.GetBytes(a, order.Field), gjson.GetBytes(b, order.Field))
				if c == 0 {
					continue
				}
				if order.Desc() {
					return -c
				}
				return c
			}
			return 0
		})
	}

	if q.Offset >= len(matched) {
		return [][]byte{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// EncodeQuery renders q as {"filter":{...},"sort":{...},"skip":n,"limit":n}.
// The sort document keeps the order of q.Sort, 1 for ascending and -1 for descending.
// skip and limit are omitted when zero. A nil q encodes as {"filter":{},"sort":{}}.
func EncodeQuery(q *criteria.Query[Filter]) ([]byte, error) {
	if q == nil {
		q = &criteria.Query[Filter]{}
	}
	filter := q.Filter
	if filter == nil {
		filter = Filter{}
	}
	filterJSON, err := JSONMarshal(filter)
	if err != nil {
		return nil, err
	}

	b, err := sjson.SetRawBytes([]byte(`{}`), "filter", filterJSON)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set filter")
	}
	b, err = sjson.SetRawBytes(b, "sort", []byte(`{}`))
	if err != nil {
		return nil, errors.Wrap(err, "failed to set sort")
	}
	for _, order := range q.Sort {
		direction := 1
		if order.Desc() {
			direction = -1
		}
		b, err = sjson.SetBytes(b, "sort."+escapePath(order.Field), direction)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to set sort field %q", order.Field)
		}
	}
	if q.Offset > 0 {
		if b, err = sjson.SetBytes(b, "skip", q.Offset); err != nil {
			return nil, errors.Wrap(err, "failed to set skip")
		}
	}
	if q.Limit > 0 {
		if b, err = sjson.SetBytes(b, "limit", q.Limit); err != nil {
			return nil, errors.Wrap(err, "failed to set limit")
		}
	}
	return b, nil
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`:`, `\:`,
)

// escapePath makes field a single sjson key, so "address.city" stays one sort key.
func escapePath(field string) string {
	return pathEscaper.Replace(field)
}
