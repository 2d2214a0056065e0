package protofilter

import (
	"reflect"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/theplant/criteria/filter"
)

type fieldMapping struct {
	exactMatch map[string]struct{} // field names that exist in the model
	snakeMatch map[string]string   // snake_case -> model field name
}

// AlignWith returns a parse option that aligns camelCase field keys from protojson
// with the field names of model:
//  1. Exact match after capitalizing: name -> Name
//  2. Snake_case match: categoryId -> category_id -> CategoryID
//
// Keys without a match are only capitalized.
func AlignWith(model any) filter.ParseOption {
	modelType := reflect.TypeOf(model)
	if modelType == nil {
		panic("model cannot be nil")
	}
	mapping := getOrBuildFieldMapping(modelType)

	return filter.WithFieldName(func(key string) string {
		key = capitalizeFirst(key)
		if _, ok := mapping.exactMatch[key]; ok {
			return key
		}
		if name, ok := mapping.snakeMatch[lo.SnakeCase(key)]; ok {
			return name
		}
		return key
	})
}

var fieldMappingCache sync.Map // map[reflect.Type]*fieldMapping

func getOrBuildFieldMapping(modelType reflect.Type) *fieldMapping {
	if cached, ok := fieldMappingCache.Load(modelType); ok {
		return cached.(*fieldMapping)
	}
	mapping := &fieldMapping{
		exactMatch: make(map[string]struct{}),
		snakeMatch: make(map[string]string),
	}
	if t := indirectType(modelType); t.Kind() == reflect.Struct {
		collectFields(t, mapping)
	}
	actual, _ := fieldMappingCache.LoadOrStore(modelType, mapping)
	return actual.(*fieldMapping)
}

func collectFields(t reflect.Type, mapping *fieldMapping) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		if field.Anonymous {
			if embedded := indirectType(field.Type); embedded.Kind() == reflect.Struct {
				collectFields(embedded, mapping)
			}
			continue
		}

		mapping.exactMatch[field.Name] = struct{}{}

		snakeKey := lo.SnakeCase(field.Name)
		if existing, ok := mapping.snakeMatch[snakeKey]; ok {
			panic("AlignWith: fields " + existing + " and " + field.Name + " both convert to " + snakeKey)
		}
		mapping.snakeMatch[snakeKey] = field.Name
	}
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
