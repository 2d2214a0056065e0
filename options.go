package criteria

import (
	"log/slog"

	"github.com/theplant/criteria/internal/hook"
)

// ResolveFunc turns one search param into a predicate.
type ResolveFunc[P any] func(param SearchParam) (P, error)

// Options configures a Service. It is read only after New returns.
type Options[P any] struct {
	Operations       Operations[P]
	ManualOperations []ManualOperationProvider[P]
	// Limits defaults to DefaultLimits. Use a zero ComplexityLimits to disable every check.
	Limits      *ComplexityLimits
	Logger      *slog.Logger
	ResolveHook func(next ResolveFunc[P]) ResolveFunc[P]
}

type Option[P any] func(*Options[P])

// WithOperations registers operation builders. Later registrations of the same kind win.
func WithOperations[P any](ops Operations[P]) Option[P] {
	return func(o *Options[P]) {
		if o.Operations == nil {
			o.Operations = make(Operations[P], len(ops))
		}
		for kind, fn := range ops {
			o.Operations[kind] = fn
		}
	}
}

func WithManualOperations[P any](providers ...ManualOperationProvider[P]) Option[P] {
	return func(o *Options[P]) {
		o.ManualOperations = append(o.ManualOperations, providers...)
	}
}

func WithComplexityLimits[P any](limits *ComplexityLimits) Option[P] {
	return func(o *Options[P]) {
		o.Limits = limits
	}
}

// WithMaxDepth keeps the other configured limits and only replaces MaxDepth.
func WithMaxDepth[P any](maxDepth int) Option[P] {
	return func(o *Options[P]) {
		limits := *DefaultLimits
		if o.Limits != nil {
			limits = *o.Limits
		}
		limits.MaxDepth = maxDepth
		o.Limits = &limits
	}
}

func WithLogger[P any](logger *slog.Logger) Option[P] {
	return func(o *Options[P]) {
		o.Logger = logger
	}
}

// WithResolveHook wraps param resolution. Hooks are applied in the order they are added,
// the first one being the outermost.
func WithResolveHook[P any](hooks ...func(next ResolveFunc[P]) ResolveFunc[P]) Option[P] {
	return func(o *Options[P]) {
		o.ResolveHook = hook.Chain(append([]func(next ResolveFunc[P]) ResolveFunc[P]{o.ResolveHook}, hooks...)...)
	}
}
