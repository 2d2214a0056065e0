package criteria

import (
	"github.com/pkg/errors"
)

// DefaultMaxDepth is the nesting depth allowed when no limits are configured.
const DefaultMaxDepth = 32

// ComplexityLimits defines limits for node tree complexity.
// A value of 0 means no limit for that metric.
type ComplexityLimits struct {
	MaxDepth       int // Maximum nesting depth of groups; the root group is depth 1
	MaxTotalFields int // Maximum total number of leaf params
	MaxGroups      int // Maximum number of groups
	MaxOrBranches  int // Maximum children in a single OR group
}

// ComplexityResult contains the calculated complexity metrics of a node tree.
type ComplexityResult struct {
	Depth       int // Deepest group nesting reached
	TotalFields int // Total number of leaf params
	Groups      int // Total number of groups
	OrBranches  int // Maximum children found in any OR group
}

var (
	// DefaultLimits only guards against runaway nesting.
	DefaultLimits = &ComplexityLimits{
		MaxDepth: DefaultMaxDepth,
	}

	// StrictLimits provides tighter limits for untrusted request input.
	StrictLimits = &ComplexityLimits{
		MaxDepth:       3,
		MaxTotalFields: 10,
		MaxGroups:      5,
		MaxOrBranches:  3,
	}
)

// CheckComplexity validates that node doesn't exceed the specified limits.
// Depth violations match ErrNestingTooDeep, the others ErrFilterTooComplex.
// If limits is nil, no validation is performed.
func CheckComplexity(node *Node, limits *ComplexityLimits) error {
	if limits == nil {
		return nil
	}

	result := calculateComplexity(node, limits.MaxDepth)

	if limits.MaxDepth > 0 && result.Depth > limits.MaxDepth {
		return errors.Wrapf(ErrNestingTooDeep, "depth exceeds limit %d", limits.MaxDepth)
	}
	if limits.MaxTotalFields > 0 && result.TotalFields > limits.MaxTotalFields {
		return errors.Wrapf(ErrFilterTooComplex, "field count %d exceeds limit %d", result.TotalFields, limits.MaxTotalFields)
	}
	if limits.MaxGroups > 0 && result.Groups > limits.MaxGroups {
		return errors.Wrapf(ErrFilterTooComplex, "group count %d exceeds limit %d", result.Groups, limits.MaxGroups)
	}
	if limits.MaxOrBranches > 0 && result.OrBranches > limits.MaxOrBranches {
		return errors.Wrapf(ErrFilterTooComplex, "OR branches %d exceeds limit %d", result.OrBranches, limits.MaxOrBranches)
	}

	return nil
}

// CalculateComplexity analyzes a node tree and returns its complexity metrics.
func CalculateComplexity(node *Node) *ComplexityResult {
	return calculateComplexity(node, 0)
}

// calculateComplexity walks the tree with an explicit stack. When stopDepth > 0
// the walk stops as soon as a group deeper than stopDepth is seen.
func calculateComplexity(root *Node, stopDepth int) *ComplexityResult {
	result := &ComplexityResult{}
	if root == nil {
		return result
	}

	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{node: root, depth: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil {
			continue
		}

		if f.node.IsLeaf() {
			result.TotalFields++
			continue
		}

		result.Groups++
		if f.depth > result.Depth {
			result.Depth = f.depth
		}
		if stopDepth > 0 && f.depth > stopDepth {
			return result
		}
		if f.node.Glue == GlueOr && len(f.node.Children) > result.OrBranches {
			result.OrBranches = len(f.node.Children)
		}
		for _, child := range f.node.Children {
			stack = append(stack, frame{node: child, depth: f.depth + 1})
		}
	}
	return result
}
