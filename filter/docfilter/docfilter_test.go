package docfilter

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theplant/criteria"
)

var people = [][]byte{
	[]byte(`{"id":1,"name":"alice","age":31,"tags":["admin","ops"],"address":{"city":"Berlin"}}`),
	[]byte(`{"id":2,"name":"bob","age":25,"tags":["dev"],"address":{"city":"Tokyo"}}`),
	[]byte(`{"id":3,"name":"carol","age":42,"address":{"city":"Berlin"},"deletedAt":null}`),
	[]byte(`{"id":4,"name":"dave","age":25,"deletedAt":"2024-02-01T00:00:00Z"}`),
}

func ids(t *testing.T, docs [][]byte) []int {
	t.Helper()
	return lo.Map(docs, func(doc []byte, _ int) int {
		var v struct{ ID int }
		require.NoError(t, jsoniterForDoc.Unmarshal(doc, &v))
		return v.ID
	})
}

func find(t *testing.T, f Filter) []int {
	t.Helper()
	docs, err := Find(people, &criteria.Query[Filter]{Filter: f})
	require.NoError(t, err)
	return ids(t, docs)
}

func TestCombinator(t *testing.T) {
	a := Filter{"age": map[string]any{OpGt: 30}}
	b := Filter{"name": map[string]any{OpEq: "bob"}}

	assert.Equal(t, Filter{}, Combinator.True())
	assert.Equal(t, Filter{OpAnd: []Filter{a, b}}, Combinator.And(a, b))
	assert.Equal(t, Filter{OpOr: []Filter{a, b}}, Combinator.Or(a, b))

	got, err := criteria.Combine(Combinator, criteria.GlueOr)
	require.NoError(t, err)
	assert.Equal(t, Filter{}, got)
}

func TestOperations(t *testing.T) {
	ops := Operations()

	testCases := []struct {
		kind     criteria.OperationKind
		value    any
		expected Filter
	}{
		{criteria.OperationEq, "alice", Filter{"name": map[string]any{OpEq: "alice"}}},
		{criteria.OperationNeq, "alice", Filter{"name": map[string]any{OpNe: "alice"}}},
		{criteria.OperationLt, 3, Filter{"name": map[string]any{OpLt: 3}}},
		{criteria.OperationLte, 3, Filter{"name": map[string]any{OpLte: 3}}},
		{criteria.OperationGt, 3, Filter{"name": map[string]any{OpGt: 3}}},
		{criteria.OperationGte, 3, Filter{"name": map[string]any{OpGte: 3}}},
		{criteria.OperationIn, []string{"a", "b"}, Filter{"name": map[string]any{OpIn: []any{"a", "b"}}}},
		{criteria.OperationNotIn, []any{"a"}, Filter{"name": map[string]any{OpNin: []any{"a"}}}},
		{criteria.OperationIsNull, true, Filter{"name": map[string]any{OpEq: nil}}},
		{criteria.OperationIsNull, false, Filter{"name": map[string]any{OpNe: nil}}},
		{criteria.OperationContains, "a.b", Filter{"name": map[string]any{OpRegex: `a\.b`}}},
		{criteria.OperationStartsWith, "al", Filter{"name": map[string]any{OpRegex: "^al"}}},
		{criteria.OperationEndsWith, "ce", Filter{"name": map[string]any{OpRegex: "ce$"}}},
	}
	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			got, err := ops[tc.kind]("name", tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	t.Run("invalid values", func(t *testing.T) {
		_, err := ops[criteria.OperationIn]("name", "alice")
		require.ErrorIs(t, err, criteria.ErrInvalidOperationValue)
		_, err = ops[criteria.OperationIsNull]("name", "yes")
		require.ErrorIs(t, err, criteria.ErrInvalidOperationValue)
		_, err = ops[criteria.OperationContains]("name", 1)
		require.ErrorIs(t, err, criteria.ErrInvalidOperationValue)
	})
}

func TestMatch(t *testing.T) {
	testCases := []struct {
		name     string
		filter   Filter
		expected []int
	}{
		{"empty filter", Filter{}, []int{1, 2, 3, 4}},
		{"implicit eq", Filter{"name": "bob"}, []int{2}},
		{"eq number", Filter{"age": map[string]any{OpEq: 25}}, []int{2, 4}},
		{"ne", Filter{"age": map[string]any{OpNe: 25}}, []int{1, 3}},
		{"gt", Filter{"age": map[string]any{OpGt: 30}}, []int{1, 3}},
		{"gte lte", Filter{"age": map[string]any{OpGte: 25, OpLte: 31}}, []int{1, 2, 4}},
		{"lt", Filter{"age": map[string]any{OpLt: 30}}, []int{2, 4}},
		{"nested path", Filter{"address.city": map[string]any{OpEq: "Berlin"}}, []int{1, 3}},
		{"in", Filter{"name": map[string]any{OpIn: []any{"alice", "dave"}}}, []int{1, 4}},
		{"nin", Filter{"name": map[string]any{OpNin: []string{"alice", "dave"}}}, []int{2, 3}},
		{"array element", Filter{"tags": "ops"}, []int{1}},
		{"regex", Filter{"name": map[string]any{OpRegex: "^[ab]"}}, []int{1, 2}},
		{"is null", Filter{"deletedAt": map[string]any{OpEq: nil}}, []int{1, 2, 3}},
		{"is not null", Filter{"deletedAt": map[string]any{OpNe: nil}}, []int{4}},
		{"string range", Filter{"deletedAt": map[string]any{OpGte: "2024-01-01T00:00:00Z"}}, []int{4}},
		{"mixed types never compare", Filter{"name": map[string]any{OpGt: 1}}, nil},
		{"and", Filter{OpAnd: []Filter{
			{"age": map[string]any{OpEq: 25}},
			{"name": "dave"},
		}}, []int{4}},
		{"or", Filter{OpOr: []Filter{
			{"age": map[string]any{OpGt: 40}},
			{"name": "bob"},
		}}, []int{2, 3}},
		{"decoded json", Filter{OpOr: []any{
			map[string]any{"name": "alice"},
			map[string]any{"address": map[string]any{"city": "Tokyo"}},
		}}, []int{1, 2}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := find(t, tc.filter)
			if tc.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.expected, got)
		})
	}

	t.Run("errors", func(t *testing.T) {
		_, err := Match([]byte(`{"a":`), Filter{})
		require.ErrorContains(t, err, "invalid JSON document")

		_, err = Match(people[0], Filter{"age": map[string]any{"$between": 1}})
		require.ErrorContains(t, err, "unknown operator $between")

		_, err = Match(people[0], Filter{"$not": Filter{}})
		require.ErrorContains(t, err, "unknown top level operator $not")

		_, err = Match(people[0], Filter{"name": map[string]any{OpRegex: "("}})
		require.Error(t, err)
	})

	t.Run("arrays of subdocuments", func(t *testing.T) {
		doc := []byte(`{"orders":[{"sku":"a","items":[{"qty":1},{"qty":5}]},{"sku":"b","tags":["x","y"]}]}`)

		testCases := []struct {
			name     string
			filter   Filter
			expected bool
		}{
			{"eq", Filter{"orders.sku": map[string]any{OpEq: "a"}}, true},
			{"eq no element", Filter{"orders.sku": map[string]any{OpEq: "c"}}, false},
			{"in", Filter{"orders.sku": map[string]any{OpIn: []any{"c", "b"}}}, true},
			{"regex", Filter{"orders.sku": map[string]any{OpRegex: "^b"}}, true},
			{"nested arrays", Filter{"orders.items.qty": map[string]any{OpGt: 3}}, true},
			{"nested arrays no element", Filter{"orders.items.qty": map[string]any{OpGt: 5}}, false},
			{"array values", Filter{"orders.tags": "y"}, true},
			{"index", Filter{"orders.1.sku": "b"}, true},
			{"index other element", Filter{"orders.0.sku": "b"}, false},
			{"missing is null", Filter{"orders.price": map[string]any{OpEq: nil}}, true},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				ok, err := Match(doc, tc.filter)
				require.NoError(t, err)
				assert.Equal(t, tc.expected, ok)
			})
		}
	})
}

func TestServiceEndToEnd(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	older := criteria.SearchParam{Name: "age", Kind: criteria.OperationGt, Value: 30}
	berlin := criteria.SearchParam{Name: "address.city", Kind: criteria.OperationEq, Value: "Berlin"}
	young := criteria.SearchParam{Name: "age", Kind: criteria.OperationLt, Value: 30}
	bob := criteria.SearchParam{Name: "name", Kind: criteria.OperationStartsWith, Value: "b"}

	t.Run("base", func(t *testing.T) {
		f, err := svc.BuildBase([]criteria.SearchParam{older, berlin}, criteria.GlueAnd)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3}, find(t, f))

		f, err = svc.BuildBase([]criteria.SearchParam{berlin, young}, criteria.GlueOr)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, find(t, f))
	})

	t.Run("complex", func(t *testing.T) {
		f, err := svc.BuildComplex([]criteria.ComplexSearchParam{
			{BaseParams: []criteria.SearchParam{older, berlin}, InternalGlue: criteria.GlueAnd},
			{BaseParams: []criteria.SearchParam{young, bob}, InternalGlue: criteria.GlueAnd},
		}, criteria.GlueOr)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, find(t, f))
	})

	t.Run("empty params match everything", func(t *testing.T) {
		f, err := svc.BuildBase(nil, criteria.GlueOr)
		require.NoError(t, err)
		assert.Equal(t, Filter{}, f)
		assert.Equal(t, []int{1, 2, 3, 4}, find(t, f))
	})

	t.Run("manual operation overrides registry", func(t *testing.T) {
		svc, err := NewService(criteria.WithManualOperations(
			criteria.NewManualOperation("name", func(param criteria.SearchParam) (Filter, error) {
				return Filter{"name": map[string]any{OpRegex: "(?i)^" + param.Value.(string)}}, nil
			}),
		))
		require.NoError(t, err)

		f, err := svc.BuildBase([]criteria.SearchParam{
			{Name: "name", Kind: criteria.OperationEq, Value: "CAR"},
		}, criteria.GlueAnd)
		require.NoError(t, err)
		assert.Equal(t, []int{3}, find(t, f))
	})
}

func TestFind(t *testing.T) {
	query := func(page *criteria.PageAttribute) *criteria.Query[Filter] {
		q, err := criteria.AssemblePage(Filter{}, page, []string{"age", "name", "deletedAt"})
		require.NoError(t, err)
		return q
	}

	t.Run("sort by several keys", func(t *testing.T) {
		docs, err := Find(people, query(&criteria.PageAttribute{SortBy: []criteria.Order{
			{Field: "age", Direction: criteria.OrderDirectionAsc},
			{Field: "name", Direction: criteria.OrderDirectionDesc},
		}}))
		require.NoError(t, err)
		assert.Equal(t, []int{4, 2, 1, 3}, ids(t, docs))
	})

	t.Run("missing values sort first", func(t *testing.T) {
		docs, err := Find(people, query(&criteria.PageAttribute{SortBy: []criteria.Order{
			{Field: "deletedAt"},
		}}))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, ids(t, docs))
	})

	t.Run("offset and limit", func(t *testing.T) {
		docs, err := Find(people, query(&criteria.PageAttribute{
			Limit:  2,
			Offset: 1,
			SortBy: []criteria.Order{{Field: "age", Direction: criteria.OrderDirectionDesc}},
		}))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, ids(t, docs))

		docs, err = Find(people, query(&criteria.PageAttribute{Offset: 10}))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("nil query", func(t *testing.T) {
		docs, err := Find(people, nil)
		require.NoError(t, err)
		assert.Equal(t, people, docs)
	})

	t.Run("invalid document", func(t *testing.T) {
		_, err := Find([][]byte{[]byte(`nope`)}, query(nil))
		require.ErrorContains(t, err, "document at index 0")
	})

	t.Run("negative offset or limit", func(t *testing.T) {
		_, err := Find(people, &criteria.Query[Filter]{Filter: Filter{}, Offset: -1})
		require.ErrorIs(t, err, criteria.ErrInvalidPageAttribute)

		_, err = Find(people, &criteria.Query[Filter]{Filter: Filter{}, Limit: -1})
		require.ErrorIs(t, err, criteria.ErrInvalidPageAttribute)
	})
}

func TestEncodeQuery(t *testing.T) {
	q := &criteria.Query[Filter]{
		Filter: Filter{OpAnd: []Filter{
			{"age": map[string]any{OpGt: 30}},
			{"address.city": map[string]any{OpEq: "Berlin"}},
		}},
		Limit:  10,
		Offset: 20,
		Sort: []criteria.Order{
			{Field: "name", Direction: criteria.OrderDirectionDesc},
			{Field: "address.city"},
			{Field: "age", Direction: criteria.OrderDirectionAsc},
		},
	}

	b, err := EncodeQuery(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"filter": {"$and": [{"age": {"$gt": 30}}, {"address.city": {"$eq": "Berlin"}}]},
		"sort": {"name": -1, "address.city": 1, "age": 1},
		"skip": 20,
		"limit": 10
	}`, string(b))
	assert.Contains(t, string(b), `"sort":{"name":-1,"address.city":1,"age":1}`)

	t.Run("zero query", func(t *testing.T) {
		b, err := EncodeQuery(&criteria.Query[Filter]{})
		require.NoError(t, err)
		assert.Equal(t, `{"filter":{},"sort":{}}`, string(b))
	})

	t.Run("nil query", func(t *testing.T) {
		b, err := EncodeQuery(nil)
		require.NoError(t, err)
		assert.Equal(t, `{"filter":{},"sort":{}}`, string(b))
	})
}
