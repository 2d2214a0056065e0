package criteria

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type OrderDirection string

const (
	OrderDirectionAsc  OrderDirection = "ASC"
	OrderDirectionDesc OrderDirection = "DESC"
)

type Order struct {
	Field     string         `json:"field" yaml:"field"`
	Direction OrderDirection `json:"direction" yaml:"direction"`
}

// Desc reports whether the order is descending. An empty direction is ascending.
func (o Order) Desc() bool {
	return o.Direction == OrderDirectionDesc
}

// PageAttribute carries offset pagination and an ordered sort specification.
type PageAttribute struct {
	Limit  int     `json:"limit" yaml:"limit"`
	Offset int     `json:"offset" yaml:"offset"`
	SortBy []Order `json:"sortBy" yaml:"sortBy"`
}

// Query is a predicate together with its paging settings.
type Query[P any] struct {
	Filter P
	Limit  int
	Offset int
	Sort   []Order
}

// AssemblePage attaches the paging settings of page to base.
// Every sort field must be one of sortableFields; sort order is preserved.
// A nil page leaves limit and offset at zero and the query unsorted.
func AssemblePage[P any](base P, page *PageAttribute, sortableFields []string) (*Query[P], error) {
	q := &Query[P]{Filter: base}
	if page == nil {
		return q, nil
	}

	if page.Limit < 0 {
		return nil, errors.Wrapf(ErrInvalidPageAttribute, "limit must be a non-negative integer, got %d", page.Limit)
	}
	if page.Offset < 0 {
		return nil, errors.Wrapf(ErrInvalidPageAttribute, "offset must be a non-negative integer, got %d", page.Offset)
	}

	if len(page.SortBy) > 0 {
		dups := lo.FindDuplicatesBy(page.SortBy, func(item Order) string {
			return item.Field
		})
		if len(dups) > 0 {
			return nil, errors.Wrapf(ErrInvalidSortField, "duplicated sort fields %v", lo.Map(dups, func(item Order, _ int) string {
				return item.Field
			}))
		}
	}

	sortable := lo.SliceToMap(sortableFields, func(field string) (string, bool) {
		return field, true
	})
	sort := make([]Order, 0, len(page.SortBy))
	for _, o := range page.SortBy {
		if !sortable[o.Field] {
			return nil, errors.Wrapf(ErrInvalidSortField, "field %q is not sortable", o.Field)
		}
		switch o.Direction {
		case "":
			o.Direction = OrderDirectionAsc
		case OrderDirectionAsc, OrderDirectionDesc:
		default:
			return nil, errors.Wrapf(ErrInvalidPageAttribute, "invalid direction %q for field %q", o.Direction, o.Field)
		}
		sort = append(sort, o)
	}

	q.Limit = page.Limit
	q.Offset = page.Offset
	q.Sort = sort
	return q, nil
}

// EnsureLimits returns a copy of page whose limit is within 1 -> maxLimit,
// using defaultLimit when the limit is not set.
func EnsureLimits(page *PageAttribute, defaultLimit, maxLimit int) *PageAttribute {
	if defaultLimit <= 0 {
		panic("defaultLimit must be greater than 0")
	}
	if maxLimit < defaultLimit {
		panic("maxLimit must be greater than or equal to defaultLimit")
	}
	var out PageAttribute
	if page != nil {
		out = *page
		out.SortBy = append([]Order(nil), page.SortBy...)
	}
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	if out.Limit > maxLimit {
		out.Limit = maxLimit
	}
	return &out
}

// AppendPrimaryOrder appends the primary orders whose fields are not already in orders.
// Used to make offset pagination deterministic with a unique tie-breaker.
func AppendPrimaryOrder(orders []Order, primary ...Order) []Order {
	if len(primary) == 0 {
		return orders
	}
	fields := lo.SliceToMap(orders, func(o Order) (string, bool) {
		return o.Field, true
	})
	out := append([]Order(nil), orders...)
	for _, p := range primary {
		if _, ok := fields[p.Field]; !ok {
			out = append(out, p)
			fields[p.Field] = true
		}
	}
	return out
}

// ParseSortBy parses a comma separated sort expression such as "-createdAt,name".
// A leading "-" means descending; "field:desc" and "field:asc" are accepted as well.
func ParseSortBy(s string) ([]Order, error) {
	var orders []Order
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		o := Order{Direction: OrderDirectionAsc}
		if field, dir, ok := strings.Cut(part, ":"); ok {
			o.Field = strings.TrimSpace(field)
			switch OrderDirection(strings.ToUpper(strings.TrimSpace(dir))) {
			case OrderDirectionAsc:
			case OrderDirectionDesc:
				o.Direction = OrderDirectionDesc
			default:
				return nil, errors.Wrapf(ErrInvalidPageAttribute, "invalid direction in %q", part)
			}
		} else if strings.HasPrefix(part, "-") {
			o.Field = strings.TrimSpace(part[1:])
			o.Direction = OrderDirectionDesc
		} else {
			o.Field = strings.TrimPrefix(part, "+")
		}

		if o.Field == "" {
			return nil, errors.Wrapf(ErrInvalidSortField, "empty field in %q", s)
		}
		orders = append(orders, o)
	}
	return orders, nil
}
