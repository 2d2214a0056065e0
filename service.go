package criteria

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Service composes search params into backend predicates.
// A Service is immutable after New and safe for concurrent use.
type Service[P any] struct {
	combinator Combinator[P]
	operations *OperationRegistry[P]
	overrides  *OverrideRegistry[P]
	limits     *ComplexityLimits
	logger     *slog.Logger
	resolve    ResolveFunc[P]
}

// New builds a Service. It fails with ErrDuplicateOverrideBinding when two manual
// operations claim the same field.
func New[P any](combinator Combinator[P], opts ...Option[P]) (*Service[P], error) {
	if combinator == nil {
		return nil, errors.New("combinator must be set")
	}

	options := &Options[P]{}
	for _, opt := range opts {
		opt(options)
	}

	overrides, err := NewOverrideRegistry(options.ManualOperations...)
	if err != nil {
		return nil, err
	}

	limits := *DefaultLimits
	if options.Limits != nil {
		limits = *options.Limits
	}

	s := &Service[P]{
		combinator: combinator,
		operations: NewOperationRegistry(options.Operations),
		overrides:  overrides,
		limits:     &limits,
		logger:     options.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.resolve = s.resolveParam
	if options.ResolveHook != nil {
		s.resolve = options.ResolveHook(s.resolve)
	}
	return s, nil
}

// BuildBase resolves every param and glues the results with glue.
// An empty params list yields the neutral predicate whatever the glue.
func (s *Service[P]) BuildBase(params []SearchParam, glue Glue) (P, error) {
	if len(params) == 0 {
		return s.combinator.True(), nil
	}
	return s.Build(ComplexSearchParam{BaseParams: params, InternalGlue: glue}.Node())
}

// BuildComplex builds each group with its internal glue, then glues the
// group predicates with externalGlue.
func (s *Service[P]) BuildComplex(groups []ComplexSearchParam, externalGlue Glue) (P, error) {
	children := make([]*Node, len(groups))
	for i, g := range groups {
		children[i] = g.Node()
	}
	return s.Build(Group(externalGlue, children...))
}

// Build folds a node tree into one predicate. A nil node yields the neutral predicate.
func (s *Service[P]) Build(node *Node) (P, error) {
	var zero P
	if node == nil {
		return s.combinator.True(), nil
	}
	if err := CheckComplexity(node, s.limits); err != nil {
		s.logger.Debug("reject search params", "error", err)
		return zero, err
	}
	pred, err := s.build(node, 1)
	if err != nil {
		s.logger.Debug("build predicate failed", "error", err)
		return zero, err
	}
	return pred, nil
}

func (s *Service[P]) build(node *Node, depth int) (P, error) {
	var zero P
	if node == nil {
		return zero, errors.Wrap(ErrInvalidNode, "nil child node")
	}
	if node.IsLeaf() {
		if len(node.Children) > 0 {
			return zero, errors.Wrapf(ErrInvalidNode, "leaf %q cannot have children", node.Param.Name)
		}
		return s.resolve(*node.Param)
	}

	// CheckComplexity has already bounded the depth when limits are set.
	if s.limits.MaxDepth > 0 && depth > s.limits.MaxDepth {
		return zero, errors.Wrapf(ErrNestingTooDeep, "depth exceeds limit %d", s.limits.MaxDepth)
	}
	if len(node.Children) == 0 {
		return s.combinator.True(), nil
	}

	preds := make([]P, 0, len(node.Children))
	for _, child := range node.Children {
		pred, err := s.build(child, depth+1)
		if err != nil {
			return zero, err
		}
		preds = append(preds, pred)
	}
	return Combine(s.combinator, node.Glue, preds...)
}

func (s *Service[P]) resolveParam(param SearchParam) (P, error) {
	var zero P
	if param.Name == "" {
		return zero, &ResolveError{Kind: param.Kind, Err: errors.New("empty field name")}
	}

	if provider, ok := s.overrides.ByField(param.Name); ok {
		s.logger.Debug("resolve search param", "field", param.Name, "kind", param.Kind, "source", "override")
		pred, err := provider.BuildOperation(param)
		if err != nil {
			return zero, errors.Wrapf(err, "manual operation for field %q", param.Name)
		}
		return pred, nil
	}

	if !s.operations.Has(param.Kind) {
		return zero, &ResolveError{Field: param.Name, Kind: param.Kind, Err: ErrUnsupportedOperationKind}
	}

	s.logger.Debug("resolve search param", "field", param.Name, "kind", param.Kind, "source", "registry")
	pred, err := s.operations.Resolve(param)
	if err != nil {
		return zero, errors.Wrapf(err, "operation %s for field %q", param.Kind, param.Name)
	}
	return pred, nil
}

// AssemblePage attaches paging settings to base. See AssemblePage.
func (s *Service[P]) AssemblePage(base P, page *PageAttribute, sortableFields []string) (*Query[P], error) {
	return AssemblePage(base, page, sortableFields)
}

// OperationKinds returns the kinds the service can resolve through its registry.
func (s *Service[P]) OperationKinds() []OperationKind {
	return s.operations.Kinds()
}
