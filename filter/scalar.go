package filter

import (
	"time"
)

// Scalar provides the comparison operations shared by every field type.
// Field names match criteria operation kinds.
type Scalar[T any] struct {
	Eq     *T    `json:"eq,omitempty"`
	Neq    *T    `json:"neq,omitempty"`
	Lt     *T    `json:"lt,omitempty"`
	Lte    *T    `json:"lte,omitempty"`
	Gt     *T    `json:"gt,omitempty"`
	Gte    *T    `json:"gte,omitempty"`
	In     []T   `json:"in,omitempty"`
	NotIn  []T   `json:"notIn,omitempty"`
	IsNull *bool `json:"isNull,omitempty"`
}

// String adds pattern operations to Scalar.
type String struct {
	Scalar[string]
	Contains   *string `json:"contains,omitempty"`
	StartsWith *string `json:"startsWith,omitempty"`
	EndsWith   *string `json:"endsWith,omitempty"`
}

// ID is used for identifier fields.
type ID String

type (
	Int   = Scalar[int]
	Float = Scalar[float64]
	Time  = Scalar[time.Time]
)

// Boolean only supports equality.
type Boolean struct {
	Eq     *bool `json:"eq,omitempty"`
	Neq    *bool `json:"neq,omitempty"`
	IsNull *bool `json:"isNull,omitempty"`
}
