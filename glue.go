package criteria

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Glue is the boolean operator used to combine sibling predicates.
type Glue string

const (
	GlueAnd Glue = "AND"
	GlueOr  Glue = "OR"
)

// ParseGlue parses "and"/"or" case-insensitively.
func ParseGlue(s string) (Glue, error) {
	g := Glue(strings.ToUpper(strings.TrimSpace(s)))
	if err := g.Validate(); err != nil {
		return "", err
	}
	return g, nil
}

func (g Glue) Validate() error {
	switch g {
	case GlueAnd, GlueOr:
		return nil
	default:
		return errors.Wrapf(ErrUnknownGlue, "%q", string(g))
	}
}

// Combinator builds backend-native boolean combinations of predicates.
// Implementations must not mutate the given slices' elements.
type Combinator[P any] interface {
	And(preds ...P) P
	Or(preds ...P) P
	// True returns the neutral predicate that matches everything.
	True() P
}

// Combine folds preds into one predicate with glue.
// Zero preds yields c.True() and a single pred is returned as is.
func Combine[P any](c Combinator[P], glue Glue, preds ...P) (P, error) {
	var zero P
	if err := glue.Validate(); err != nil {
		return zero, err
	}
	switch len(preds) {
	case 0:
		return c.True(), nil
	case 1:
		return preds[0], nil
	}
	preds = slices.Clone(preds)
	if glue == GlueAnd {
		return c.And(preds...), nil
	}
	return c.Or(preds...), nil
}
