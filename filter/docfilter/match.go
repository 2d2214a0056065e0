package docfilter

import (
	"cmp"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/theplant/criteria/filter"
)

// Match reports whether the JSON document doc satisfies f.
// Field keys are dotted paths, so "address.city" reaches nested values and
// "tags.name" reaches the name of every subdocument in the tags array.
// A scalar condition on an array field matches when any element does.
func Match(doc []byte, f Filter) (bool, error) {
	if !gjson.ValidBytes(doc) {
		return false, errors.New("invalid JSON document")
	}
	return match(gjson.ParseBytes(doc), f)
}

func match(doc gjson.Result, f map[string]any) (bool, error) {
	keys := lo.Keys(f)
	sort.Strings(keys)

	for _, key := range keys {
		value := f[key]
		var (
			ok  bool
			err error
		)
		switch key {
		case OpAnd, OpOr:
			ok, err = matchLogical(doc, key, value)
		default:
			if strings.HasPrefix(key, "$") {
				return false, errors.Errorf("unknown top level operator %s", key)
			}
			ok, err = matchField(lookup(doc, key), key, value)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchLogical(doc gjson.Result, op string, value any) (bool, error) {
	subs, err := toFilters(value)
	if err != nil {
		return false, errors.Wrapf(err, "operator %s", op)
	}
	for i, sub := range subs {
		ok, err := match(doc, sub)
		if err != nil {
			return false, errors.Wrapf(err, "%s index %d", op, i)
		}
		if op == OpOr && ok {
			return true, nil
		}
		if op == OpAnd && !ok {
			return false, nil
		}
	}
	return op == OpAnd, nil
}

func matchField(actual gjson.Result, field string, value any) (bool, error) {
	conds, ok := toMap(value)
	if !ok || !isOperatorMap(conds) {
		expected, err := toResult(value)
		if err != nil {
			return false, err
		}
		return equal(actual, expected), nil
	}

	ops := lo.Keys(conds)
	sort.Strings(ops)
	for _, op := range ops {
		ok, err := matchOperator(actual, op, conds[op])
		if err != nil {
			return false, errors.Wrapf(err, "field %s", field)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchOperator(actual gjson.Result, op string, value any) (bool, error) {
	switch op {
	case OpEq, OpNe:
		expected, err := toResult(value)
		if err != nil {
			return false, err
		}
		eq := equal(actual, expected)
		if op == OpNe {
			return !eq, nil
		}
		return eq, nil

	case OpGt, OpGte, OpLt, OpLte:
		expected, err := toResult(value)
		if err != nil {
			return false, err
		}
		return anyElement(actual, func(v gjson.Result) bool {
			c, ok := compareOrdered(v, expected)
			if !ok {
				return false
			}
			switch op {
			case OpGt:
				return c > 0
			case OpGte:
				return c >= 0
			case OpLt:
				return c < 0
			default:
				return c <= 0
			}
		}), nil

	case OpIn, OpNin:
		values, err := filter.ToList(value)
		if err != nil {
			return false, errors.Wrapf(err, "operator %s", op)
		}
		in := false
		for _, v := range values {
			expected, err := toResult(v)
			if err != nil {
				return false, err
			}
			if equal(actual, expected) {
				in = true
				break
			}
		}
		if op == OpNin {
			return !in, nil
		}
		return in, nil

	case OpRegex:
		expr, ok := value.(string)
		if !ok {
			return false, errors.Errorf("operator %s expects a string, got %T", op, value)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return false, errors.Wrapf(err, "operator %s", op)
		}
		return anyElement(actual, func(v gjson.Result) bool {
			return v.Type == gjson.String && re.MatchString(v.Str)
		}), nil

	default:
		return false, errors.Errorf("unknown operator %s", op)
	}
}

// lookup resolves path one segment at a time. A non index segment applied to an
// array fans out over its elements and the values found are collected into an
// array, with array values also contributing their elements.
func lookup(doc gjson.Result, path string) gjson.Result {
	cur := doc
	for _, seg := range splitPath(path) {
		if !cur.IsArray() || isIndex(seg) {
			cur = cur.Get(seg)
			if !cur.Exists() {
				return gjson.Result{}
			}
			continue
		}

		var raws []string
		cur.ForEach(func(_, elem gjson.Result) bool {
			v := elem.Get(seg)
			if !v.Exists() {
				return true
			}
			raws = append(raws, v.Raw)
			if v.IsArray() {
				v.ForEach(func(_, item gjson.Result) bool {
					raws = append(raws, item.Raw)
					return true
				})
			}
			return true
		})
		if len(raws) == 0 {
			return gjson.Result{}
		}
		cur = gjson.Parse("[" + strings.Join(raws, ",") + "]")
	}
	return cur
}

// splitPath splits on dots not escaped with a backslash. Escapes are kept, gjson
// resolves them per segment.
func splitPath(path string) []string {
	var (
		segs  []string
		start int
	)
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '\\':
			i++
		case '.':
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	return append(segs, path[start:])
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// equal treats a missing field as null.
func equal(actual, expected gjson.Result) bool {
	if expected.Type == gjson.Null {
		return !actual.Exists() || actual.Type == gjson.Null
	}
	if actual.IsArray() && !expected.IsArray() {
		return anyElement(actual, func(v gjson.Result) bool { return sameValue(v, expected) })
	}
	return sameValue(actual, expected)
}

func sameValue(a, b gjson.Result) bool {
	if !a.Exists() {
		return false
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case gjson.Number:
		return a.Num == b.Num
	case gjson.String:
		return a.Str == b.Str
	case gjson.JSON:
		return compactRaw(a) == compactRaw(b)
	default:
		return true
	}
}

func anyElement(actual gjson.Result, pred func(gjson.Result) bool) bool {
	if !actual.IsArray() {
		return pred(actual)
	}
	found := false
	actual.ForEach(func(_, v gjson.Result) bool {
		found = pred(v)
		return !found
	})
	return found
}

// compareOrdered compares numbers with numbers and strings with strings.
func compareOrdered(a, b gjson.Result) (int, bool) {
	switch {
	case a.Type == gjson.Number && b.Type == gjson.Number:
		return cmp.Compare(a.Num, b.Num), true
	case a.Type == gjson.String && b.Type == gjson.String:
		return strings.Compare(a.Str, b.Str), true
	default:
		return 0, false
	}
}

// compareValues is a total order used for sorting: missing and null values first,
// then numbers, strings, booleans and finally objects and arrays.
func compareValues(a, b gjson.Result) int {
	if c := cmp.Compare(typeRank(a), typeRank(b)); c != 0 {
		return c
	}
	switch a.Type {
	case gjson.Number:
		return cmp.Compare(a.Num, b.Num)
	case gjson.String:
		return strings.Compare(a.Str, b.Str)
	case gjson.False, gjson.True:
		return cmp.Compare(a.Type, b.Type)
	case gjson.JSON:
		return strings.Compare(compactRaw(a), compactRaw(b))
	default:
		return 0
	}
}

func typeRank(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return 1
	case gjson.String:
		return 2
	case gjson.False, gjson.True:
		return 3
	case gjson.JSON:
		return 4
	default:
		return 0
	}
}

func compactRaw(v gjson.Result) string {
	return gjson.Get(v.Raw, "@ugly").Raw
}

func toResult(v any) (gjson.Result, error) {
	b, err := JSONMarshal(v)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(b), nil
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Filter:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

func isOperatorMap(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func toFilters(value any) ([]map[string]any, error) {
	if filters, ok := value.([]Filter); ok {
		return lo.Map(filters, func(f Filter, _ int) map[string]any { return f }), nil
	}
	values, err := filter.ToList(value)
	if err != nil {
		return nil, err
	}
	filters := make([]map[string]any, 0, len(values))
	for i, v := range values {
		m, ok := toMap(v)
		if !ok {
			return nil, errors.Errorf("item at index %d should be a filter, got %T", i, v)
		}
		filters = append(filters, m)
	}
	return filters, nil
}
