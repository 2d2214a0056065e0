package criteria

// OperationKind names a comparison, e.g. Eq or Gte.
type OperationKind string

const (
	OperationEq         OperationKind = "Eq"
	OperationNeq        OperationKind = "Neq"
	OperationLt         OperationKind = "Lt"
	OperationLte        OperationKind = "Lte"
	OperationGt         OperationKind = "Gt"
	OperationGte        OperationKind = "Gte"
	OperationIn         OperationKind = "In"
	OperationNotIn      OperationKind = "NotIn"
	OperationIsNull     OperationKind = "IsNull"
	OperationContains   OperationKind = "Contains"
	OperationStartsWith OperationKind = "StartsWith"
	OperationEndsWith   OperationKind = "EndsWith"
)

// SearchParam is a single field-level filter condition.
type SearchParam struct {
	Name  string        `json:"name" yaml:"name"`
	Value any           `json:"value" yaml:"value"`
	Kind  OperationKind `json:"kind" yaml:"kind"`
}

// ComplexSearchParam is a group of search params combined by InternalGlue.
type ComplexSearchParam struct {
	BaseParams   []SearchParam `json:"baseParams" yaml:"params"`
	InternalGlue Glue          `json:"internalGlue" yaml:"glue"`
}

// Node returns the group node for c.
func (c ComplexSearchParam) Node() *Node {
	children := make([]*Node, len(c.BaseParams))
	for i := range c.BaseParams {
		children[i] = Leaf(c.BaseParams[i])
	}
	return Group(c.InternalGlue, children...)
}

// Node is either a leaf holding a SearchParam or a group whose children are
// combined by Glue.
type Node struct {
	Param    *SearchParam
	Glue     Glue
	Children []*Node
}

func Leaf(param SearchParam) *Node {
	return &Node{Param: &param}
}

func Group(glue Glue, children ...*Node) *Node {
	return &Node{Glue: glue, Children: children}
}

func (n *Node) IsLeaf() bool {
	return n.Param != nil
}
